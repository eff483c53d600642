package mailer

// EmailJob is the JSON payload put on the RabbitMQ queue for sending email.
// Either a template name with data, or raw subject/text/html.
type EmailJob struct {
	// MessageID correlates the enqueue-time answer with the worker's send.
	MessageID string         `json:"message_id,omitempty"`
	To        string         `json:"to"`
	Subject   string         `json:"subject,omitempty"`
	Text      string         `json:"text,omitempty"`
	HTML      string         `json:"html,omitempty"`
	Template  string         `json:"template,omitempty"` // "signup_verify"
	Data      map[string]any `json:"data,omitempty"`
}
