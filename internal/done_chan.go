// Package internal holds small concurrency primitives shared by the
// Worker and Supervisor: a closable "done" signal and a periodic-task
// runner.
package internal

import "sync"

// DoneChan is closed exactly once, when whatever it represents has
// finished. Receiving from a closed channel never blocks, so it
// composes naturally with select statements used for shutdown.
type DoneChan chan struct{}

// DoneFunc kicks off an asynchronous shutdown and returns the channel
// that will close once it completes.
type DoneFunc func() DoneChan

// WrapWaitGroup returns a DoneChan that closes once wg.Wait returns.
// Supervisor uses this to turn "N worker goroutines have returned"
// into a single awaitable signal.
func WrapWaitGroup(wg *sync.WaitGroup) DoneChan {
	ret := make(DoneChan)
	go func() {
		wg.Wait()
		close(ret)
	}()
	return ret
}

// CombineAll returns a DoneChan that closes once every supplied
// channel has closed. The Supervisor uses it to join the fleet of
// worker DoneChans together with the optional CleanWorker's.
func CombineAll(chans ...DoneChan) DoneChan {
	ret := make(DoneChan)
	go func() {
		for _, c := range chans {
			<-c
		}
		close(ret)
	}()
	return ret
}
