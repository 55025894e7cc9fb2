package storage

import (
	"sort"
	"strings"

	"gamebay/internal/models"
)

// CategoryWithCount is a category plus the number of torrents whose category
// set contains its slug.
type CategoryWithCount struct {
	models.Category
	Count int `json:"count"`
}

func validateCategoryParams(params CategoryParams) error {
	if strings.TrimSpace(params.Name) == "" {
		return ErrNameRequired
	}
	if strings.TrimSpace(params.Slug) == "" {
		return ErrSlugRequired
	}
	return nil
}

func countTorrentsWithSlug(torrents map[string]models.Torrent, slug string) int {
	count := 0
	for _, torrent := range torrents {
		for _, candidate := range torrent.Category {
			if candidate == slug {
				count++
				break
			}
		}
	}
	return count
}

func (s *Storage) ListCategories() ([]CategoryWithCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	categories := make([]CategoryWithCount, 0, len(s.data.Categories))
	for _, category := range s.data.Categories {
		categories = append(categories, CategoryWithCount{
			Category: category,
			Count:    countTorrentsWithSlug(s.data.Torrents, category.Slug),
		})
	}
	sort.Slice(categories, func(i, j int) bool {
		return categories[i].Name < categories[j].Name
	})
	return categories, nil
}

func (s *Storage) CreateCategory(params CategoryParams) (models.Category, error) {
	if err := validateCategoryParams(params); err != nil {
		return models.Category{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	icon := strings.TrimSpace(params.Icon)
	if icon == "" {
		icon = models.DefaultCategoryIcon
	}
	category := models.Category{
		ID:   newID(),
		Name: strings.TrimSpace(params.Name),
		Slug: strings.TrimSpace(params.Slug),
		Icon: icon,
	}

	updatedData := cloneDataset(s.data)
	updatedData.Categories[category.ID] = category
	if err := s.persistDataset(updatedData); err != nil {
		return models.Category{}, err
	}
	s.data = updatedData
	return category, nil
}

// UpdateCategory applies the non-nil fields of update. A missing id succeeds
// without effect.
func (s *Storage) UpdateCategory(id string, update CategoryUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	category, ok := s.data.Categories[id]
	if !ok {
		return nil
	}

	if update.Name != nil {
		trimmed := strings.TrimSpace(*update.Name)
		if trimmed == "" {
			return ErrNameRequired
		}
		category.Name = trimmed
	}
	if update.Slug != nil {
		trimmed := strings.TrimSpace(*update.Slug)
		if trimmed == "" {
			return ErrSlugRequired
		}
		category.Slug = trimmed
	}
	if update.Icon != nil {
		icon := strings.TrimSpace(*update.Icon)
		if icon == "" {
			icon = models.DefaultCategoryIcon
		}
		category.Icon = icon
	}

	updatedData := cloneDataset(s.data)
	updatedData.Categories[id] = category
	if err := s.persistDataset(updatedData); err != nil {
		return err
	}
	s.data = updatedData
	return nil
}

// DeleteCategory removes only the category record. Torrents keep the slug in
// their category sets; membership simply stops resolving to a category.
func (s *Storage) DeleteCategory(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Categories[id]; !ok {
		return nil
	}

	updatedData := cloneDataset(s.data)
	delete(updatedData.Categories, id)
	if err := s.persistDataset(updatedData); err != nil {
		return err
	}
	s.data = updatedData
	return nil
}
