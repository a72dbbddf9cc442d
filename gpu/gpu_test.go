//go:build !nogpu

package gpu

import "testing"

func TestSetDeviceProviderNil(t *testing.T) {
	if err := SetDeviceProvider(nil); err == nil {
		t.Error("SetDeviceProvider(nil) error = nil, want error")
	}
}
