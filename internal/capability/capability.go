// Package capability describes optional runtime features as plain values
// so services never probe the environment themselves.
package capability

const (
	SpeechInput = "speech_input"
	KeyPicker   = "key_picker"
)

type Capability struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
	Detail    string `json:"detail,omitempty"`
}

func Available(name, detail string) Capability {
	return Capability{Name: name, Available: true, Detail: detail}
}

func Unavailable(name, reason string) Capability {
	return Capability{Name: name, Available: false, Detail: reason}
}

// Set is a fixed collection of capabilities, resolved once at startup.
type Set struct {
	items []Capability
}

func NewSet(items ...Capability) *Set {
	return &Set{items: append([]Capability(nil), items...)}
}

func (s *Set) Get(name string) Capability {
	for _, c := range s.items {
		if c.Name == name {
			return c
		}
	}
	return Unavailable(name, "not configured")
}

func (s *Set) Has(name string) bool {
	return s.Get(name).Available
}

func (s *Set) All() []Capability {
	return append([]Capability(nil), s.items...)
}
