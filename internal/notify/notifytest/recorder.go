// Package notifytest records notices and redirects for assertions.
package notifytest

// Notice is a single recorded notice.
type Notice struct {
	Level string
	Msg   string
}

// Recorder implements notify.Notifier and notify.Navigator.
type Recorder struct {
	Notices   []Notice
	Redirects int
}

func (r *Recorder) Success(msg string) { r.Notices = append(r.Notices, Notice{"success", msg}) }
func (r *Recorder) Warn(msg string)    { r.Notices = append(r.Notices, Notice{"warning", msg}) }
func (r *Recorder) Error(msg string)   { r.Notices = append(r.Notices, Notice{"error", msg}) }

// RedirectToLogin counts redirects.
func (r *Recorder) RedirectToLogin() { r.Redirects++ }

// Count returns how many notices of level were recorded.
func (r *Recorder) Count(level string) int {
	n := 0
	for _, no := range r.Notices {
		if no.Level == level {
			n++
		}
	}
	return n
}

// Last returns the most recent notice, if any.
func (r *Recorder) Last() (Notice, bool) {
	if len(r.Notices) == 0 {
		return Notice{}, false
	}
	return r.Notices[len(r.Notices)-1], true
}
