package services

import (
	"cftracker/internal/codeforces"
	"cftracker/internal/models"
	"cftracker/internal/providers"
	"cftracker/internal/services/interfaces"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gookit/validate"
)

// StudentInput is the payload accepted when a student is registered.
type StudentInput struct {
	Name         string `json:"name" validate:"required|minLen:2|maxLen:120"`
	Email        string `json:"email" validate:"required|email"`
	Phone        string `json:"phone" validate:"maxLen:32"`
	Handle       string `json:"codeforcesHandle" validate:"required|minLen:3|maxLen:24|regex:^[A-Za-z0-9_.\\-]+$"`
	EmailEnabled *bool  `json:"emailEnabled"`
}

// ValidationError lists field problems of a rejected input.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for f, msg := range e.Fields {
		parts = append(parts, f+": "+msg)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

var ErrUnknownHandle = errors.New("codeforces handle does not exist")

// StudentPatch is a partial edit; nil fields keep their stored value.
type StudentPatch struct {
	Name         *string `json:"name"`
	Email        *string `json:"email"`
	Phone        *string `json:"phone"`
	Handle       *string `json:"codeforcesHandle"`
	EmailEnabled *bool   `json:"emailEnabled"`
}

type StudentServiceInterface interface {
	Create(ctx context.Context, input StudentInput) (*models.Student, error)
	Update(ctx context.Context, id string, patch StudentPatch) (*models.Student, error)
	Delete(ctx context.Context, id string) error
	Wait()
}

// StudentService manages the student lifecycle. Registration and handle
// changes seed ratings from the upstream profile and start a background
// sync; registration also sends a welcome email.
type StudentService struct {
	repo     interfaces.RepositoryInterface
	client   interfaces.CodeforcesClientInterface
	notifier interfaces.NotifierInterface
	sync     SyncServiceInterface
	logger   providers.Logger
	wg       sync.WaitGroup
}

func NewStudentService(repo interfaces.RepositoryInterface, client interfaces.CodeforcesClientInterface, notifier interfaces.NotifierInterface, syncService SyncServiceInterface, logger providers.Logger) *StudentService {
	return &StudentService{
		repo:     repo,
		client:   client,
		notifier: notifier,
		sync:     syncService,
		logger:   logger,
	}
}

// inputFields maps struct and output names to the JSON names reported to
// clients.
var inputFields = map[string]string{
	"Name": "name", "name": "name",
	"Email": "email", "email": "email",
	"Phone": "phone", "phone": "phone",
	"Handle": "codeforcesHandle", "codeforcesHandle": "codeforcesHandle",
}

func validateInput(input StudentInput) error {
	v := validate.Struct(&input)
	if v.Validate() {
		return nil
	}
	fields := make(map[string]string)
	for field, msgs := range v.Errors.All() {
		if name, ok := inputFields[field]; ok {
			field = name
		}
		for _, msg := range msgs {
			fields[field] = msg
			break
		}
	}
	return &ValidationError{Fields: fields}
}

func (s *StudentService) Create(ctx context.Context, input StudentInput) (*models.Student, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.TrimSpace(input.Email)
	input.Handle = strings.TrimSpace(input.Handle)
	if err := validateInput(input); err != nil {
		return nil, err
	}
	if err := s.checkDuplicates(ctx, "", input.Email, input.Handle); err != nil {
		return nil, err
	}

	student := &models.Student{
		Name:         input.Name,
		Email:        input.Email,
		Phone:        strings.TrimSpace(input.Phone),
		Handle:       input.Handle,
		EmailEnabled: input.EmailEnabled == nil || *input.EmailEnabled,
	}

	profile, err := s.verifyHandle(ctx, input.Handle)
	if err != nil {
		return nil, err
	}
	if profile != nil {
		student.Handle = profile.Handle
		student.CurrentRating = profile.Rating
		student.MaxRating = profile.MaxRating
	}

	if err := s.repo.CreateStudent(ctx, student); err != nil {
		return nil, err
	}
	s.logger.Infof(providers.TypeApp, "Student %s registered with handle %s", student.ID, student.Handle)

	if student.EmailEnabled {
		s.notifier.SendWelcome(ctx, student)
	}
	s.syncInBackground(ctx, student, "Initial")

	return student, nil
}

// Update applies a partial edit. A changed handle is verified upstream,
// resets the ratings to the new profile and triggers a background sync.
func (s *StudentService) Update(ctx context.Context, id string, patch StudentPatch) (*models.Student, error) {
	existing, err := s.repo.FindStudent(ctx, id)
	if err != nil {
		return nil, err
	}

	patch.Name, patch.Email = trimmed(patch.Name), trimmed(patch.Email)
	patch.Phone, patch.Handle = trimmed(patch.Phone), trimmed(patch.Handle)

	merged := StudentInput{Name: existing.Name, Email: existing.Email, Phone: existing.Phone, Handle: existing.Handle}
	if patch.Name != nil {
		merged.Name = *patch.Name
	}
	if patch.Email != nil {
		merged.Email = *patch.Email
	}
	if patch.Phone != nil {
		merged.Phone = *patch.Phone
	}
	if patch.Handle != nil {
		merged.Handle = *patch.Handle
	}
	if err := validateInput(merged); err != nil {
		return nil, err
	}

	var email, handle string
	if patch.Email != nil && !strings.EqualFold(*patch.Email, existing.Email) {
		email = *patch.Email
	}
	handleChanged := patch.Handle != nil && *patch.Handle != existing.Handle
	if handleChanged {
		handle = *patch.Handle
	}
	if err := s.checkDuplicates(ctx, id, email, handle); err != nil {
		return nil, err
	}

	update := models.StudentUpdate{
		Name:         patch.Name,
		Email:        patch.Email,
		Phone:        patch.Phone,
		EmailEnabled: patch.EmailEnabled,
	}
	if handleChanged {
		profile, err := s.verifyHandle(ctx, handle)
		if err != nil {
			return nil, err
		}
		rating, maxRating := 0, 0
		if profile != nil {
			handle = profile.Handle
			rating, maxRating = profile.Rating, profile.MaxRating
		}
		update.Handle = &handle
		update.CurrentRating, update.MaxRating = &rating, &maxRating
	}

	if err := s.repo.UpdateStudent(ctx, id, update); err != nil {
		return nil, err
	}
	updated, err := s.repo.FindStudent(ctx, id)
	if err != nil {
		return nil, err
	}
	s.logger.Infof(providers.TypeApp, "Student %s updated", id)

	if handleChanged {
		s.logger.Infof(providers.TypeApp, "Handle of %s changed from %s to %s", id, existing.Handle, updated.Handle)
		s.syncInBackground(ctx, updated, "Post-update")
	}
	return updated, nil
}

// Delete removes a student together with contests, submissions and logs.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	if err := s.repo.DeleteStudent(ctx, id); err != nil {
		return err
	}
	s.logger.Infof(providers.TypeApp, "Student %s deleted", id)
	return nil
}

// checkDuplicates rejects an email or handle already used by a student
// other than excludeID. Empty values are not checked.
func (s *StudentService) checkDuplicates(ctx context.Context, excludeID, email, handle string) error {
	if email != "" {
		other, err := s.repo.FindStudentByEmail(ctx, email)
		switch {
		case err == nil && other.ID != excludeID:
			return fmt.Errorf("email %s: %w", email, models.ErrAlreadyExists)
		case err != nil && !errors.Is(err, models.ErrNotFound):
			return err
		}
	}
	if handle != "" {
		other, err := s.repo.FindStudentByHandle(ctx, handle)
		switch {
		case err == nil && other.ID != excludeID:
			return fmt.Errorf("handle %s: %w", handle, models.ErrAlreadyExists)
		case err != nil && !errors.Is(err, models.ErrNotFound):
			return err
		}
	}
	return nil
}

// verifyHandle looks the handle up upstream. An unreachable API must not
// block the caller: the profile is nil and the next sync fills it in.
func (s *StudentService) verifyHandle(ctx context.Context, handle string) (*models.Profile, error) {
	profile, err := s.client.UserInfo(ctx, handle)
	switch {
	case err == nil:
		return profile, nil
	case errors.Is(err, codeforces.ErrNotFound), errors.Is(err, models.ErrNotFound):
		return nil, fmt.Errorf("%s: %w", handle, ErrUnknownHandle)
	case codeforces.IsTransient(err):
		s.logger.Warnf(providers.TypeCodeforces, "Handle %s not verified, API unavailable: %s", handle, err)
		return nil, nil
	default:
		return nil, fmt.Errorf("verify handle: %w", err)
	}
}

func (s *StudentService) syncInBackground(ctx context.Context, student *models.Student, kind string) {
	bg := context.WithoutCancel(ctx)
	target := student.Clone()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if _, err := s.sync.SyncStudent(bg, target, models.TriggerManual); err != nil {
			s.logger.Errorf(providers.TypeSync, "%s sync of %s failed: %s", kind, target.ID, err)
		}
	}()
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	return &t
}

// Wait blocks until background syncs have finished.
func (s *StudentService) Wait() {
	s.wg.Wait()
}
