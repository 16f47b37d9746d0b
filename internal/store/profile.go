package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/mukha/internal/landmark"
	"github.com/ayusman/mukha/internal/rules"
	"github.com/ayusman/mukha/internal/threshold"
)

// Profile is a user's persisted tuning: base thresholds, the neutral head
// pose and the calibrated gesture thresholds.
type Profile struct {
	ID             string
	Name           string
	Thresholds     threshold.Set
	NeutralPose    *landmark.Point
	Calibrated     *threshold.Calibrated
	LastCalibrated *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewProfile returns a profile with default thresholds and no calibration.
func NewProfile(name string) *Profile {
	return &Profile{
		ID:         uuid.New().String(),
		Name:       name,
		Thresholds: threshold.Defaults(),
	}
}

// Calibration is the calibration section of the profile schema.
type Calibration struct {
	NeutralPose          *landmark.Point           `json:"neutralPose"`
	CalibratedThresholds *threshold.Calibrated     `json:"calibratedThresholds"`
	LastCalibrated       *time.Time                `json:"lastCalibrated"`
	AdaptationHistory    []threshold.UsageSnapshot `json:"adaptationHistory"`
}

// Schema is the exported JSON form of a profile.
type Schema struct {
	Name        string        `json:"name"`
	Thresholds  threshold.Set `json:"thresholds"`
	Rules       []rules.Rule  `json:"rules"`
	Calibration Calibration   `json:"calibration"`
}

// Schema renders the profile with its rules and adaptation history.
func (p *Profile) Schema(rs []rules.Rule, history []threshold.UsageSnapshot) Schema {
	if rs == nil {
		rs = []rules.Rule{}
	}
	if history == nil {
		history = []threshold.UsageSnapshot{}
	}
	return Schema{
		Name:       p.Name,
		Thresholds: p.Thresholds,
		Rules:      rs,
		Calibration: Calibration{
			NeutralPose:          p.NeutralPose,
			CalibratedThresholds: p.Calibrated,
			LastCalibrated:       p.LastCalibrated,
			AdaptationHistory:    history,
		},
	}
}

// ProfileRepository provides CRUD operations for profiles.
type ProfileRepository struct {
	db *sql.DB
}

// Profiles returns the profile repository for this store.
func (s *Store) Profiles() *ProfileRepository {
	return &ProfileRepository{db: s.db}
}

const profileColumns = `id, name, thresholds, neutral_x, neutral_y, calibrated, last_calibrated, created_at, updated_at`

// Create inserts a new profile into the database.
func (r *ProfileRepository) Create(p *Profile) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now

	args, err := profileArgs(p)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(
		`INSERT INTO profiles (id, name, thresholds, neutral_x, neutral_y, calibrated, last_calibrated, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		append([]any{p.ID, p.Name}, append(args, p.CreatedAt, p.UpdatedAt)...)...,
	)
	return err
}

// GetByID retrieves a profile by its ID.
func (r *ProfileRepository) GetByID(id string) (*Profile, error) {
	return r.get(`SELECT `+profileColumns+` FROM profiles WHERE id = ?`, id)
}

// GetByName retrieves a profile by its name.
func (r *ProfileRepository) GetByName(name string) (*Profile, error) {
	return r.get(`SELECT `+profileColumns+` FROM profiles WHERE name = ?`, name)
}

// Ensure returns the named profile, creating it with defaults if missing.
func (r *ProfileRepository) Ensure(name string) (*Profile, error) {
	p, err := r.GetByName(name)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	p = NewProfile(name)
	if err := r.Create(p); err != nil {
		return nil, fmt.Errorf("failed to create profile %q: %w", name, err)
	}
	return p, nil
}

// List retrieves all profiles ordered by name.
func (r *ProfileRepository) List() ([]*Profile, error) {
	rows, err := r.db.Query(`SELECT ` + profileColumns + ` FROM profiles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []*Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return profiles, nil
}

// Update updates an existing profile in the database.
func (r *ProfileRepository) Update(p *Profile) error {
	p.UpdatedAt = time.Now()

	args, err := profileArgs(p)
	if err != nil {
		return err
	}
	result, err := r.db.Exec(
		`UPDATE profiles SET name = ?, thresholds = ?, neutral_x = ?, neutral_y = ?, calibrated = ?, last_calibrated = ?, updated_at = ?
		 WHERE id = ?`,
		append([]any{p.Name}, append(args, p.UpdatedAt, p.ID)...)...,
	)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

// Delete removes a profile and everything that belongs to it.
func (r *ProfileRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM profiles WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

func (r *ProfileRepository) get(query string, arg any) (*Profile, error) {
	p, err := scanProfile(r.db.QueryRow(query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

// profileArgs returns the thresholds, neutral pose, calibration and
// last-calibrated column values.
func profileArgs(p *Profile) ([]any, error) {
	th, err := json.Marshal(p.Thresholds)
	if err != nil {
		return nil, fmt.Errorf("failed to encode thresholds: %w", err)
	}

	var nx, ny sql.NullFloat64
	if p.NeutralPose != nil {
		nx = sql.NullFloat64{Float64: p.NeutralPose.X, Valid: true}
		ny = sql.NullFloat64{Float64: p.NeutralPose.Y, Valid: true}
	}

	var cal sql.NullString
	if p.Calibrated != nil {
		data, err := json.Marshal(p.Calibrated)
		if err != nil {
			return nil, fmt.Errorf("failed to encode calibration: %w", err)
		}
		cal = sql.NullString{String: string(data), Valid: true}
	}

	var last sql.NullTime
	if p.LastCalibrated != nil {
		last = sql.NullTime{Time: *p.LastCalibrated, Valid: true}
	}

	return []any{string(th), nx, ny, cal, last}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*Profile, error) {
	p := &Profile{}
	var th string
	var nx, ny sql.NullFloat64
	var cal sql.NullString
	var last sql.NullTime

	if err := row.Scan(&p.ID, &p.Name, &th, &nx, &ny, &cal, &last, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}

	set, err := threshold.Parse([]byte(th))
	if err != nil {
		return nil, err
	}
	p.Thresholds = set

	if nx.Valid && ny.Valid {
		p.NeutralPose = &landmark.Point{X: nx.Float64, Y: ny.Float64}
	}
	if cal.Valid {
		var c threshold.Calibrated
		if err := json.Unmarshal([]byte(cal.String), &c); err != nil {
			return nil, fmt.Errorf("failed to decode calibration: %w", err)
		}
		p.Calibrated = &c
	}
	if last.Valid {
		t := last.Time
		p.LastCalibrated = &t
	}
	return p, nil
}
