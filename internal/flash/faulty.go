package flash

import "errors"

// ErrPowerLoss is returned by a Faulty device once its step budget runs out.
// Every later call fails the same way until Restore.
var ErrPowerLoss = errors.New("flash: power lost")

// Faulty injects a power loss into a wrapped device.
//
// Steps are counted as one per programmed byte and one per erased unit. Reads
// are free. When a write needs more steps than remain, the leading bytes that
// fit are programmed and the write fails: this is a torn write.
type Faulty struct {
	dev    Device
	budget int // remaining steps, negative when disarmed
	steps  int
	dead   bool
}

// NewFaulty wraps dev. The returned device is disarmed.
func NewFaulty(dev Device) *Faulty {
	return &Faulty{dev: dev, budget: -1}
}

// Arm schedules a power loss after budget more steps.
func (f *Faulty) Arm(budget int) {
	if budget < 0 {
		budget = 0
	}
	f.budget = budget
}

// Disarm cancels a scheduled power loss.
func (f *Faulty) Disarm() { f.budget = -1 }

// Restore brings power back: the device works again and is disarmed.
func (f *Faulty) Restore() {
	f.dead = false
	f.budget = -1
}

// PoweredOff reports whether the injected power loss has happened.
func (f *Faulty) PoweredOff() bool { return f.dead }

// Steps returns the number of steps consumed so far.
func (f *Faulty) Steps() int { return f.steps }

func (f *Faulty) Read(addr uint32, p []byte) error {
	if f.dead {
		return ErrPowerLoss
	}
	return f.dev.Read(addr, p)
}

func (f *Faulty) Write(addr uint32, p []byte) error {
	if f.dead {
		return ErrPowerLoss
	}
	if f.budget < 0 || len(p) <= f.budget {
		if err := f.dev.Write(addr, p); err != nil {
			return err
		}
		f.steps += len(p)
		if f.budget >= 0 {
			f.budget -= len(p)
		}
		return nil
	}
	n := f.budget
	f.budget = 0
	f.dead = true
	if n > 0 {
		if err := f.dev.Write(addr, p[:n]); err != nil {
			return errors.Join(ErrPowerLoss, err)
		}
		f.steps += n
	}
	return ErrPowerLoss
}

func (f *Faulty) Erase(addr uint32) error {
	if f.dead {
		return ErrPowerLoss
	}
	if f.budget == 0 {
		f.dead = true
		return ErrPowerLoss
	}
	if err := f.dev.Erase(addr); err != nil {
		return err
	}
	f.steps++
	if f.budget > 0 {
		f.budget--
	}
	return nil
}
