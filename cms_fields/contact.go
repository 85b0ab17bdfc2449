package cms_fields

import "time"

const (
	ContactNew      = "new"
	ContactRead     = "read"
	ContactReplied  = "replied"
	ContactArchived = "archived"
)

// ContactStatuses lists every status in the order the dashboard shows them.
var ContactStatuses = []string{ContactNew, ContactRead, ContactReplied, ContactArchived}

// Contact is a message left through the public contact form.
type Contact struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	Subject   string    `json:"subject" db:"subject"`
	Message   string    `json:"message" db:"message"`
	Status    string    `json:"status" db:"status"`
	IPHash    string    `json:"-" db:"ip_hash"`
	UserAgent string    `json:"user_agent,omitempty" db:"user_agent"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ContactRequest is the public form payload. Website is a honeypot that humans never fill.
type ContactRequest struct {
	Name    string `json:"name" binding:"required,max=100"`
	Email   string `json:"email" binding:"required,email,max=254"`
	Subject string `json:"subject" binding:"max=200"`
	Message string `json:"message" binding:"required,min=10,max=5000"`
	Website string `json:"website"`
}

type ContactStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=new read replied archived"`
}
