package injector

import "sync"

// Fake records injected text for assertions.
type Fake struct {
	Err error

	mu    sync.Mutex
	texts []string
}

func NewFakeInjector() *Fake {
	return &Fake{}
}

func (f *Fake) Inject(text string) error {
	if f.Err != nil {
		return f.Err
	}
	f.mu.Lock()
	f.texts = append(f.texts, text)
	f.mu.Unlock()
	return nil
}

func (f *Fake) Texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.texts))
	copy(out, f.texts)
	return out
}
