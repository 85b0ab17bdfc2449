package store

import (
	"context"
	"strings"

	"github.com/adonese/folio/cms_fields"
)

// CreateContact stores a contact message; ip is hashed before it reaches the table.
func (s *Store) CreateContact(ctx context.Context, contact *cms_fields.Contact, ip string) error {
	db, err := s.ensureDB()
	if err != nil {
		return err
	}
	now := s.Now()
	if contact.Status == "" {
		contact.Status = cms_fields.ContactNew
	}
	if ip != "" {
		contact.IPHash = s.HashIP(ip)
	}
	stmt := s.DB.Rebind(`INSERT INTO contacts(name, email, subject, message, status, ip_hash, user_agent, created_at, updated_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)
	if err := db.GetContext(ctx, &contact.ID, stmt,
		contact.Name,
		strings.ToLower(strings.TrimSpace(contact.Email)),
		contact.Subject,
		contact.Message,
		contact.Status,
		contact.IPHash,
		contact.UserAgent,
		now,
		now,
	); err != nil {
		return err
	}
	contact.CreatedAt = now
	contact.UpdatedAt = now
	return nil
}

func (s *Store) GetContact(ctx context.Context, id int64) (*cms_fields.Contact, error) {
	db, err := s.ensureDB()
	if err != nil {
		return nil, err
	}
	var contact cms_fields.Contact
	if err := db.GetContext(ctx, &contact, s.DB.Rebind("SELECT * FROM contacts WHERE id = ?"), id); err != nil {
		return nil, err
	}
	return &contact, nil
}

// ListContacts returns one page of messages, newest first, optionally filtered by status.
func (s *Store) ListContacts(ctx context.Context, status string, page cms_fields.Pagination) ([]cms_fields.Contact, int, error) {
	db, err := s.ensureDB()
	if err != nil {
		return nil, 0, err
	}
	where := ""
	var args []any
	if status != "" {
		where = " WHERE status = ?"
		args = append(args, status)
	}
	var total int
	if err := db.GetContext(ctx, &total, s.DB.Rebind("SELECT COUNT(*) FROM contacts"+where), args...); err != nil {
		return nil, 0, err
	}
	contacts := []cms_fields.Contact{}
	stmt := s.DB.Rebind("SELECT * FROM contacts" + where + " ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?")
	args = append(args, page.PerPage, page.Offset())
	if err := db.SelectContext(ctx, &contacts, stmt, args...); err != nil {
		return nil, 0, err
	}
	return contacts, total, nil
}

func (s *Store) UpdateContactStatus(ctx context.Context, id int64, status string) error {
	db, err := s.ensureDB()
	if err != nil {
		return err
	}
	res, err := db.ExecContext(ctx, s.DB.Rebind("UPDATE contacts SET status = ?, updated_at = ? WHERE id = ?"), status, s.Now(), id)
	return affected(res, err)
}

// MarkContactRead moves a new message to read and leaves any other status alone.
func (s *Store) MarkContactRead(ctx context.Context, id int64) error {
	db, err := s.ensureDB()
	if err != nil {
		return err
	}
	stmt := s.DB.Rebind("UPDATE contacts SET status = ?, updated_at = ? WHERE id = ? AND status = ?")
	_, err = db.ExecContext(ctx, stmt, cms_fields.ContactRead, s.Now(), id, cms_fields.ContactNew)
	return err
}

func (s *Store) DeleteContact(ctx context.Context, id int64) error {
	db, err := s.ensureDB()
	if err != nil {
		return err
	}
	res, err := db.ExecContext(ctx, s.DB.Rebind("DELETE FROM contacts WHERE id = ?"), id)
	return affected(res, err)
}

// CountContactsByStatus returns a count for every known status, zero included.
func (s *Store) CountContactsByStatus(ctx context.Context) (map[string]int, error) {
	db, err := s.ensureDB()
	if err != nil {
		return nil, err
	}
	var rows []struct {
		Status string `db:"status"`
		Count  int    `db:"count"`
	}
	if err := db.SelectContext(ctx, &rows, "SELECT status, COUNT(*) AS count FROM contacts GROUP BY status"); err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(cms_fields.ContactStatuses))
	for _, st := range cms_fields.ContactStatuses {
		counts[st] = 0
	}
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}
