// Package send emits synthetic input.
//
// Every event a Sender emits carries the dispatcher's tag. The dispatcher
// records tagged events in its button state but never matches them
// against rules, so a handler that sends input cannot trigger itself.
//
//	s := send.New(injector, dispatcher, send.WithModifierState(tracker))
//	err := s.Send(send.Wrap([]input.Button{input.LCtrl}, input.C))
//	err = s.Send(send.With(input.LShift).Then(send.Click(input.H), send.Click(input.I)))
package send
