package form

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Mode is the purpose of an open form.
type Mode int

const (
	ModeCreate Mode = iota + 1
	ModeEdit
)

func (m Mode) String() string {
	switch m {
	case ModeCreate:
		return "create"
	case ModeEdit:
		return "edit"
	default:
		return "none"
	}
}

// Status is the lifecycle state of a Modal.
type Status int

const (
	Closed Status = iota
	Open
	Submitting
)

func (s Status) String() string {
	switch s {
	case Open:
		return "open"
	case Submitting:
		return "submitting"
	default:
		return "closed"
	}
}

var (
	// ErrNotOpen is returned by Submit on a closed modal.
	ErrNotOpen = errors.New("form: modal is not open")
	// ErrBusy is returned by Submit while a submission is in flight.
	ErrBusy = errors.New("form: submission in progress")
)

// ValidationError reports local rule violations. No request is sent.
type ValidationError struct {
	Errors Errors
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, f := range e.Errors.Fields() {
		parts = append(parts, f+": "+e.Errors[f])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Submitter persists a form.
type Submitter interface {
	Create(ctx context.Context, values Values) error
	Update(ctx context.Context, id string, values Values) error
}

// fieldErrorer is implemented by server errors that carry per-field messages.
type fieldErrorer interface {
	FieldErrors() map[string]string
}

// State is a snapshot of a Modal.
type State struct {
	Status Status
	Mode   Mode
	ID     string
	Values Values
	Errors Errors
	Notice string
}

// Option configures a Modal.
type Option func(*Modal)

// OnSaved registers a callback run after a successful submit, typically to
// refresh the list.
func OnSaved(fn func(Mode)) Option {
	return func(m *Modal) { m.onSaved = fn }
}

// Modal is the create/edit form state machine:
//
//	Closed -> Open(create|edit) -> Submitting -> Closed
//	                                          -> Open with errors
type Modal struct {
	schema  Schema
	submit  Submitter
	onSaved func(Mode)

	mu     sync.Mutex
	status Status
	mode   Mode
	id     string
	values Values
	errors Errors
	notice string
}

// NewModal returns a closed modal.
func NewModal(schema Schema, submitter Submitter, opts ...Option) *Modal {
	m := &Modal{schema: schema, submit: submitter}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// OpenCreate opens an empty form seeded with defaults.
func (m *Modal) OpenCreate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status == Submitting {
		return
	}
	m.open(ModeCreate, "", m.schema.Blank())
}

// OpenEdit opens the form for record id seeded with its current values.
func (m *Modal) OpenEdit(id string, seed Values) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status == Submitting {
		return
	}
	values := m.schema.Blank()
	for k, v := range seed {
		values[k] = v
	}
	m.open(ModeEdit, id, values)
}

func (m *Modal) open(mode Mode, id string, values Values) {
	m.status = Open
	m.mode = mode
	m.id = id
	m.values = values
	m.errors = Errors{}
	m.notice = ""
}

// Set updates a field and clears its error.
func (m *Modal) Set(field, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status != Open {
		return
	}
	m.values[field] = value
	delete(m.errors, field)
}

// Close discards the form. It has no effect while submitting.
func (m *Modal) Close() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status == Submitting {
		return false
	}
	m.reset()
	return true
}

func (m *Modal) reset() {
	m.status = Closed
	m.mode = 0
	m.id = ""
	m.values = nil
	m.errors = nil
	m.notice = ""
}

// Submit validates locally and, if clean, sends the form. Local violations
// are all reported and nothing is sent. Server field errors overwrite local
// messages for the same fields. A submit while another is in flight returns
// ErrBusy and has no effect.
func (m *Modal) Submit(ctx context.Context) error {
	m.mu.Lock()
	switch m.status {
	case Closed:
		m.mu.Unlock()
		return ErrNotOpen
	case Submitting:
		m.mu.Unlock()
		return ErrBusy
	}

	if errs := m.schema.Validate(m.values); len(errs) > 0 {
		m.errors = errs
		m.notice = ""
		m.mu.Unlock()
		return &ValidationError{Errors: errs}
	}

	m.errors = Errors{}
	m.notice = ""
	m.status = Submitting
	mode, id, values := m.mode, m.id, m.values.Clone()
	m.mu.Unlock()

	var err error
	if mode == ModeEdit {
		err = m.submit.Update(ctx, id, values)
	} else {
		err = m.submit.Create(ctx, values)
	}

	m.mu.Lock()
	if err != nil {
		m.status = Open
		var fe fieldErrorer
		if errors.As(err, &fe) && len(fe.FieldErrors()) > 0 {
			for f, msg := range fe.FieldErrors() {
				m.errors[f] = msg
			}
		} else {
			m.notice = fmt.Sprintf("failed to save: %v", err)
		}
		m.mu.Unlock()
		return err
	}
	m.reset()
	onSaved := m.onSaved
	m.mu.Unlock()

	if onSaved != nil {
		onSaved(mode)
	}
	return nil
}

// State returns a snapshot of the modal.
func (m *Modal) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := State{
		Status: m.status,
		Mode:   m.mode,
		ID:     m.id,
		Notice: m.notice,
	}
	if m.values != nil {
		st.Values = m.values.Clone()
	}
	if m.errors != nil {
		st.Errors = make(Errors, len(m.errors))
		for k, v := range m.errors {
			st.Errors[k] = v
		}
	}
	return st
}
