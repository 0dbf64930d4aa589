package model

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

func (t Theme) Valid() bool {
	return t == ThemeLight || t == ThemeDark
}

// State is everything that survives a restart.
type State struct {
	Categories    []Category     `json:"categories"`
	Conversations []Conversation `json:"conversations"`
	Theme         Theme          `json:"theme"`
	Users         []User         `json:"users"`
}
