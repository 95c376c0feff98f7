package db

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pyneda/openeoct/pkg/registry"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Backend is the stored form of registry.Backend.
type Backend struct {
	ID        string    `gorm:"primaryKey;size:255" json:"id"`
	Name      string    `gorm:"size:255" json:"name"`
	URL       string    `gorm:"type:text;not null" json:"url"`
	OpenAPI   string    `gorm:"type:text" json:"openapi"`
	Version   string    `gorm:"size:50" json:"version"`
	Output    string    `gorm:"type:text" json:"output"`
	AuthURL   string    `gorm:"type:text" json:"auth_url"`
	Username  string    `gorm:"size:255" json:"username"`
	Password  string    `gorm:"size:255" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Endpoint is the stored form of registry.EndpointRecord.
type Endpoint struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BackendID string    `gorm:"size:255;not null;uniqueIndex:idx_endpoint_coord,priority:1;uniqueIndex:idx_endpoint_key,priority:1" json:"backend_id"`
	Backend   Backend   `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Key       string    `gorm:"size:255;not null;uniqueIndex:idx_endpoint_key,priority:2" json:"key"`
	URL       string    `gorm:"size:1024;not null;uniqueIndex:idx_endpoint_coord,priority:2" json:"url"`
	Method    string    `gorm:"size:10;not null;uniqueIndex:idx_endpoint_coord,priority:3" json:"method"`
	Group     string    `gorm:"column:endpoint_group;size:255" json:"group"`
	Timeout   int       `json:"timeout"`
	Order     int       `gorm:"column:endpoint_order" json:"order"`
	Optional  bool      `json:"optional"`
	Body      string    `gorm:"type:text" json:"body"`
	Header    string    `gorm:"type:text" json:"header"`
	// Position keeps the registry insertion order.
	Position  int       `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Variable is the stored form of registry.Variable.
type Variable struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BackendID string    `gorm:"size:255;not null;uniqueIndex:idx_variable_name,priority:1" json:"backend_id"`
	Backend   Backend   `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Name      string    `gorm:"size:255;not null;uniqueIndex:idx_variable_name,priority:2" json:"name"`
	Value     string    `gorm:"type:text" json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (e *Endpoint) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

func (v *Variable) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

func backendFromRegistry(b registry.Backend) Backend {
	return Backend{
		ID:       b.ID,
		Name:     b.Name,
		URL:      b.URL,
		OpenAPI:  b.OpenAPI,
		Version:  b.Version,
		Output:   b.Output,
		AuthURL:  b.AuthURL,
		Username: b.Username,
		Password: b.Password,
	}
}

func (b Backend) toRegistry() registry.Backend {
	return registry.Backend{
		ID:       b.ID,
		Name:     b.Name,
		URL:      b.URL,
		OpenAPI:  b.OpenAPI,
		Version:  b.Version,
		Output:   b.Output,
		AuthURL:  b.AuthURL,
		Username: b.Username,
		Password: b.Password,
	}
}

func endpointFromRegistry(e registry.EndpointRecord, position int) Endpoint {
	return Endpoint{
		ID:        e.StorageID,
		BackendID: e.BackendID,
		Key:       e.ID,
		URL:       e.URL,
		Method:    e.Method,
		Group:     e.Group,
		Timeout:   e.Timeout,
		Order:     e.Order,
		Optional:  e.Optional,
		Body:      e.Body,
		Header:    e.Header,
		Position:  position,
	}
}

func (e Endpoint) toRegistry() registry.EndpointRecord {
	return registry.EndpointRecord{
		StorageID: e.ID,
		BackendID: e.BackendID,
		ID:        e.Key,
		URL:       e.URL,
		Method:    e.Method,
		Group:     e.Group,
		Timeout:   e.Timeout,
		Order:     e.Order,
		Optional:  e.Optional,
		Body:      e.Body,
		Header:    e.Header,
	}
}

// SaveBackend writes the current state of one registry backend. Endpoints
// and variables no longer present in the registry are removed.
func (d *DatabaseConnection) SaveBackend(reg *registry.Registry, backendID string) error {
	snapshot, err := reg.Snapshot(backendID)
	if err != nil {
		return err
	}
	return d.SaveSnapshot(snapshot)
}

// SaveSnapshot writes one backend in a single transaction. Rows are upserted
// on their storage id so creation times survive, rows that are gone are deleted.
func (d *DatabaseConnection) SaveSnapshot(snapshot registry.Snapshot) error {
	backendID := snapshot.Backend.ID
	return d.db.Transaction(func(tx *gorm.DB) error {
		backend := backendFromRegistry(snapshot.Backend)
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&backend).Error; err != nil {
			return fmt.Errorf("saving backend: %w", err)
		}

		var stored []Endpoint
		if err := tx.Where("backend_id = ?", backendID).Find(&stored).Error; err != nil {
			return fmt.Errorf("reading endpoints: %w", err)
		}
		endpoints := make([]Endpoint, len(snapshot.Endpoints))
		wanted := make(map[uuid.UUID]Endpoint, len(endpoints))
		for i, e := range snapshot.Endpoints {
			endpoints[i] = endpointFromRegistry(e, i)
			wanted[e.StorageID] = endpoints[i]
		}
		var gone []uuid.UUID
		for _, row := range stored {
			next, ok := wanted[row.ID]
			switch {
			case !ok:
				gone = append(gone, row.ID)
			case next.Key != row.Key || next.URL != row.URL || next.Method != row.Method:
				// Park rows that move so swapped keys or urls do not collide
				// with the unique indices while the upsert runs.
				parked := "~" + row.ID.String()
				if err := tx.Model(&Endpoint{}).Where("id = ?", row.ID).
					Updates(map[string]any{"key": parked, "url": parked}).Error; err != nil {
					return fmt.Errorf("moving endpoint %s: %w", row.Key, err)
				}
			}
		}
		if len(gone) > 0 {
			if err := tx.Where("id IN ?", gone).Delete(&Endpoint{}).Error; err != nil {
				return fmt.Errorf("removing endpoints: %w", err)
			}
		}
		if len(endpoints) > 0 {
			err := tx.Omit(clause.Associations).
				Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, UpdateAll: true}).
				Create(&endpoints).Error
			if err != nil {
				return fmt.Errorf("saving endpoints: %w", err)
			}
		}

		keep := make([]uuid.UUID, 0, len(snapshot.Variables))
		variables := make([]Variable, len(snapshot.Variables))
		for i, v := range snapshot.Variables {
			variables[i] = Variable{ID: v.StorageID, BackendID: backendID, Name: v.Name, Value: v.Value}
			keep = append(keep, v.StorageID)
		}
		removed := tx.Where("backend_id = ?", backendID)
		if len(keep) > 0 {
			removed = removed.Where("id NOT IN ?", keep)
		}
		if err := removed.Delete(&Variable{}).Error; err != nil {
			return fmt.Errorf("removing variables: %w", err)
		}
		if len(variables) > 0 {
			err := tx.Omit(clause.Associations).
				Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, UpdateAll: true}).
				Create(&variables).Error
			if err != nil {
				return fmt.Errorf("saving variables: %w", err)
			}
		}
		return nil
	})
}

// DeleteBackend removes a backend with its endpoints, variables and results.
func (d *DatabaseConnection) DeleteBackend(backendID string) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{&Endpoint{}, &Variable{}, &ValidationResult{}} {
			if err := tx.Unscoped().Where("backend_id = ?", backendID).Delete(model).Error; err != nil {
				return err
			}
		}
		result := tx.Where("id = ?", backendID).Delete(&Backend{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: %s", registry.ErrBackendNotFound, backendID)
		}
		return nil
	})
}

// LoadBackend reads one stored backend into reg, replacing any in-memory state.
func (d *DatabaseConnection) LoadBackend(reg *registry.Registry, backendID string) error {
	var backend Backend
	if err := d.db.Where("id = ?", backendID).First(&backend).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %s", registry.ErrBackendNotFound, backendID)
		}
		return err
	}
	return d.restore(reg, backend)
}

// LoadRegistry rebuilds an in-memory registry from every stored backend.
func (d *DatabaseConnection) LoadRegistry() (*registry.Registry, error) {
	var backends []Backend
	if err := d.db.Order("id").Find(&backends).Error; err != nil {
		return nil, err
	}
	reg := registry.New()
	for _, b := range backends {
		if err := d.restore(reg, b); err != nil {
			return nil, fmt.Errorf("loading backend %s: %w", b.ID, err)
		}
	}
	return reg, nil
}

func (d *DatabaseConnection) restore(reg *registry.Registry, b Backend) error {
	var endpoints []Endpoint
	if err := d.db.Where("backend_id = ?", b.ID).Order("position").Find(&endpoints).Error; err != nil {
		return err
	}
	var variables []Variable
	if err := d.db.Where("backend_id = ?", b.ID).Order("name").Find(&variables).Error; err != nil {
		return err
	}
	snapshot := registry.Snapshot{Backend: b.toRegistry()}
	for _, e := range endpoints {
		snapshot.Endpoints = append(snapshot.Endpoints, e.toRegistry())
	}
	for _, v := range variables {
		snapshot.Variables = append(snapshot.Variables, registry.Variable{StorageID: v.ID, BackendID: v.BackendID, Name: v.Name, Value: v.Value})
	}
	return reg.Restore(snapshot)
}

// BackendIDs lists the stored backend identifiers.
func (d *DatabaseConnection) BackendIDs() ([]string, error) {
	var ids []string
	err := d.db.Model(&Backend{}).Order("id").Pluck("id", &ids).Error
	return ids, err
}
