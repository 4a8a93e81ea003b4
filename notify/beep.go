package notify

import "dictap/beep"

// Beep plays short audio cues so users get feedback without looking
// at a screen.
type Beep struct{}

func NewBeep() *Beep {
	go beep.Init()
	return &Beep{}
}

func (Beep) Notify(ev Event) {
	switch ev.Kind {
	case RecordStart:
		beep.PlayStart()
	case RecordStop, Done, Cancelled:
		beep.PlayEnd()
	case Failed:
		beep.PlayError()
	}
}
