package harness

// Delivery is the outcome for one recipient of one event.
type Delivery struct {
	Notification string `json:"notification,omitempty"`
	Recipient    int64  `json:"recipient"`
	Type         string `json:"type,omitempty"`
	Source       string `json:"source,omitempty"`
	Pushed       bool   `json:"pushed"`
	Mailed       bool   `json:"mailed"`
}

// TraceEvent records what one scenario event did.
type TraceEvent struct {
	Seq        int        `json:"seq"`
	Event      string     `json:"event"`
	Error      string     `json:"error,omitempty"`
	Deliveries []Delivery `json:"deliveries"`
}

// StoredNotification is the persisted view of a record, in insertion order.
type StoredNotification struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	Type      string `json:"type"`
	Text      string `json:"text"`
	Recipient int64  `json:"recipient,omitempty"`
	Group     int64  `json:"tutorial_group,omitempty"`
	CreatedAt string `json:"created_at"`
}

// Email is one recorded outgoing mail.
type Email struct {
	To      int64  `json:"to"`
	Subject string `json:"subject"`
}

// Result is the outcome of running a scenario.
type Result struct {
	// Pass is true when no event or assertion failed.
	Pass bool `json:"pass"`

	Trace         []TraceEvent         `json:"trace"`
	Notifications []StoredNotification `json:"notifications"`
	Pushes        map[int64]int        `json:"-"`
	Emails        []Email              `json:"emails"`

	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:          true,
		Trace:         []TraceEvent{},
		Notifications: []StoredNotification{},
		Pushes:        make(map[int64]int),
		Emails:        []Email{},
		Errors:        []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// PushCount returns pushes to user, or all pushes when user is 0.
func (r *Result) PushCount(user int64) int {
	if user != 0 {
		return r.Pushes[user]
	}
	n := 0
	for _, c := range r.Pushes {
		n += c
	}
	return n
}

// EmailCount returns emails to user, or all emails when user is 0.
func (r *Result) EmailCount(user int64) int {
	n := 0
	for _, e := range r.Emails {
		if user == 0 || e.To == user {
			n++
		}
	}
	return n
}
