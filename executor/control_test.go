package executor

import (
	"testing"

	"stepplan/core"
	"stepplan/planner"
)

type fakeGPIODriver struct {
	pins map[core.GPIOPin]bool
}

func (f *fakeGPIODriver) ConfigureOutput(pin core.GPIOPin) error        { return nil }
func (f *fakeGPIODriver) ConfigureInputPullUp(pin core.GPIOPin) error   { return nil }
func (f *fakeGPIODriver) ConfigureInputPullDown(pin core.GPIOPin) error { return nil }
func (f *fakeGPIODriver) GetPin(pin core.GPIOPin) (bool, error)         { return f.pins[pin], nil }
func (f *fakeGPIODriver) ReadPin(pin core.GPIOPin) bool                 { return f.pins[pin] }
func (f *fakeGPIODriver) SetPin(pin core.GPIOPin, value bool) error {
	if f.pins == nil {
		f.pins = map[core.GPIOPin]bool{}
	}
	f.pins[pin] = value
	return nil
}

func TestFinishAndDisableSteppersDropsEnablePins(t *testing.T) {
	driver := &fakeGPIODriver{}
	core.SetGPIODriver(driver)
	defer core.SetGPIODriver(nil)

	ring := planner.NewRingBuffer(8)
	axes := []AxisPins{
		{Backend: &fakeBackend{}, StepsPerMM: 80, EnablePin: "5", InvertEnable: false},
		{Backend: &fakeBackend{}, StepsPerMM: 80, EnablePin: "6", InvertEnable: true},
	}
	e := New(ring, axes)

	e.FinishAndDisableSteppers(nil)

	if v := driver.pins[core.GPIOPin(5)]; !v {
		t.Errorf("expected pin 5 driven high to disable (InvertEnable=false), got %v", v)
	}
	if v := driver.pins[core.GPIOPin(6)]; v {
		t.Errorf("expected pin 6 driven low to disable (InvertEnable=true), got %v", v)
	}
}
