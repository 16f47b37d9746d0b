package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/ayusman/mukha/internal/rules"
)

// RuleRepository provides CRUD operations for a profile's rules.
type RuleRepository struct {
	db *sql.DB
}

// Rules returns the rule repository for this store.
func (s *Store) Rules() *RuleRepository {
	return &RuleRepository{db: s.db}
}

// Create validates r and appends it to the profile's rule list. Duplicate
// bindings are rejected with rules.ErrDuplicate.
func (r *RuleRepository) Create(profileID string, rule *rules.Rule) error {
	if err := rule.Validate(); err != nil {
		return err
	}
	existing, err := r.List(profileID)
	if err != nil {
		return err
	}
	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	if err := rules.CheckDuplicate(existing, *rule); err != nil {
		return err
	}

	_, err = r.db.Exec(
		`INSERT INTO rules (id, profile_id, position, gesture, action, param, enabled)
		 VALUES (?, ?, COALESCE((SELECT MAX(position) + 1 FROM rules WHERE profile_id = ?), 0), ?, ?, ?, ?)`,
		rule.ID, profileID, profileID, rule.Gesture, rule.Action, rule.Param, rule.Enabled,
	)
	if err != nil {
		return fmt.Errorf("failed to create rule: %w", err)
	}
	return nil
}

// GetByID retrieves a rule by its ID.
func (r *RuleRepository) GetByID(id string) (*rules.Rule, error) {
	rule := &rules.Rule{}
	var enabled int
	err := r.db.QueryRow(
		`SELECT id, gesture, action, param, enabled FROM rules WHERE id = ?`, id,
	).Scan(&rule.ID, &rule.Gesture, &rule.Action, &rule.Param, &enabled)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	rule.Enabled = enabled != 0
	return rule, nil
}

// List returns the profile's rules in evaluation order.
func (r *RuleRepository) List(profileID string) ([]rules.Rule, error) {
	rows, err := r.db.Query(
		`SELECT id, gesture, action, param, enabled FROM rules
		 WHERE profile_id = ? ORDER BY position ASC`,
		profileID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []rules.Rule{}
	for rows.Next() {
		var rule rules.Rule
		var enabled int
		if err := rows.Scan(&rule.ID, &rule.Gesture, &rule.Action, &rule.Param, &enabled); err != nil {
			return nil, err
		}
		rule.Enabled = enabled != 0
		list = append(list, rule)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return list, nil
}

// Update replaces a rule's binding, keeping its position.
func (r *RuleRepository) Update(profileID string, rule *rules.Rule) error {
	if err := rule.Validate(); err != nil {
		return err
	}
	existing, err := r.List(profileID)
	if err != nil {
		return err
	}
	if err := rules.CheckDuplicate(existing, *rule); err != nil {
		return err
	}

	result, err := r.db.Exec(
		`UPDATE rules SET gesture = ?, action = ?, param = ?, enabled = ?
		 WHERE id = ? AND profile_id = ?`,
		rule.Gesture, rule.Action, rule.Param, rule.Enabled, rule.ID, profileID,
	)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

// Delete removes a rule by its ID.
func (r *RuleRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM rules WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

// DeleteAll removes every rule of the profile.
func (r *RuleRepository) DeleteAll(profileID string) error {
	_, err := r.db.Exec(`DELETE FROM rules WHERE profile_id = ?`, profileID)
	return err
}
