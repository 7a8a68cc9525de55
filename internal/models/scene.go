package models

// Scene is the top-level screen. It is always derived, never set directly.
type Scene int

const (
	SceneLoading Scene = iota
	SceneLoginRegister
	SceneFetchConfigError
	SceneLoggedIn
)

func (s Scene) String() string {
	switch s {
	case SceneLoading:
		return "Loading"
	case SceneLoginRegister:
		return "LoginRegister"
	case SceneFetchConfigError:
		return "FetchConfigError"
	case SceneLoggedIn:
		return "LoggedIn"
	}
	return "Unknown"
}
