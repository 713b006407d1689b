package studio

// Notifier receives session updates for live clients.
type Notifier interface {
	SessionChanged(view View)
	DesignSaved(sessionID, designID string)
}

type nopNotifier struct{}

func (nopNotifier) SessionChanged(View)        {}
func (nopNotifier) DesignSaved(string, string) {}
