package storage

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"gamebay/internal/models"
)

func validateCreateUserParams(params CreateUserParams) error {
	if strings.TrimSpace(params.Username) == "" {
		return ErrUsernameRequired
	}
	if strings.TrimSpace(params.Email) == "" {
		return ErrEmailRequired
	}
	if params.Password == "" {
		return ErrPasswordRequired
	}
	return nil
}

func defaultAvatarURL(username string) string {
	return "https://api.dicebear.com/7.x/avataaars/svg?seed=" + url.QueryEscape(username)
}

func (s *Storage) CreateUser(params CreateUserParams) (models.User, error) {
	if err := validateCreateUserParams(params); err != nil {
		return models.User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(strings.TrimSpace(params.Email))
	username := strings.TrimSpace(params.Username)
	for _, user := range s.data.Users {
		if strings.EqualFold(user.Email, email) {
			return models.User{}, ErrEmailTaken
		}
		if user.Username == username {
			return models.User{}, ErrUsernameTaken
		}
	}

	hash, err := hashPassword(params.Password)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		ID:           newID(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Avatar:       defaultAvatarURL(username),
		FirstName:    username,
		CreatedAt:    s.now(),
	}

	updatedData := cloneDataset(s.data)
	updatedData.Users[user.ID] = user
	if err := s.persistDataset(updatedData); err != nil {
		return models.User{}, err
	}
	s.data = updatedData
	return user, nil
}

func (s *Storage) AuthenticateUser(email, password string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	normalized := strings.ToLower(strings.TrimSpace(email))
	for _, user := range s.data.Users {
		if !strings.EqualFold(user.Email, normalized) {
			continue
		}
		if !verifyPassword(user.PasswordHash, password) {
			return models.User{}, ErrInvalidCredentials
		}
		return user, nil
	}
	return models.User{}, ErrInvalidCredentials
}

// ListUsers returns every user, newest first.
func (s *Storage) ListUsers() ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]models.User, 0, len(s.data.Users))
	for _, user := range s.data.Users {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool {
		if !users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].CreatedAt.After(users[j].CreatedAt)
		}
		return users[i].ID < users[j].ID
	})
	return users, nil
}

func (s *Storage) GetUser(id string) (models.User, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.data.Users[id]
	return user, ok, nil
}

// SetUserAdmin updates the admin flag. A missing id succeeds without effect.
func (s *Storage) SetUserAdmin(id string, isAdmin bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.data.Users[id]
	if !ok {
		return nil
	}
	user.IsAdmin = isAdmin

	updatedData := cloneDataset(s.data)
	updatedData.Users[id] = user
	if err := s.persistDataset(updatedData); err != nil {
		return err
	}
	s.data = updatedData
	return nil
}

// DeleteUser removes the user and every comment they authored in one
// persisted write, so a failed persist leaves both collections untouched.
func (s *Storage) DeleteUser(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Users[id]; !ok {
		return nil
	}

	updatedData := cloneDataset(s.data)
	delete(updatedData.Users, id)
	for commentID, comment := range updatedData.Comments {
		if comment.UserID == id {
			delete(updatedData.Comments, commentID)
		}
	}
	if err := s.persistDataset(updatedData); err != nil {
		return err
	}
	s.data = updatedData
	return nil
}

func (s *Storage) Stats() (models.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return models.Stats{
		Games:    len(s.data.Torrents),
		Users:    len(s.data.Users),
		Comments: len(s.data.Comments),
	}, nil
}

func (s *Storage) Warning() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Warning, nil
}

func (s *Storage) SetWarning(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)
	updatedData.Warning = text
	if err := s.persistDataset(updatedData); err != nil {
		return err
	}
	s.data = updatedData
	return nil
}
