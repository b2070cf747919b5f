package state

import (
	"fmt"
	"time"
)

// Dispatch queues the function to run on the event loop without waiting for
// it to complete.
func (e *Env) Dispatch(fun func(*State) error) {
	defer func() {
		if r := recover(); r != nil {
			e.Cancel(fmt.Errorf("panic: %v", r))
		}
	}()
	select {
	case e.DispatchChannel <- fun:
	case <-e.Context.Done():
	}
}

// ScheduleTask runs the function on the event loop once, after delay.
func (e *Env) ScheduleTask(fun func(*State) error, delay time.Duration) {
	time.AfterFunc(delay, func() {
		e.Dispatch(fun)
	})
}

// RepeatTask runs the function on the event loop every period, first firing
// one period from now. Timers are restart-only: once started they tick until
// the node context ends.
func (e *Env) RepeatTask(fun func(*State) error, period time.Duration) {
	go func() {
		t := time.NewTicker(period)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				e.Dispatch(fun)
			case <-e.Context.Done():
				return
			}
		}
	}()
}
