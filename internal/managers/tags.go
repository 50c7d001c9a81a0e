package managers

import (
	"context"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/horusctf/horus/internal/api"
)

// TagManager represents tag management page.
type TagManager struct {
	core *Core
	tags *Resource[api.Tags]
}

func NewTagManager(core *Core) *TagManager {
	return &TagManager{
		core: core,
		tags: NewResource(core, "tags", core.Client.ObserveTags),
	}
}

func (m *TagManager) Load(ctx context.Context) error {
	return m.tags.Reload(ctx)
}

func (m *TagManager) Close() {
	m.tags.Close()
}

func (m *TagManager) Tags() api.Tags {
	return m.tags.Value()
}

type tagForm struct {
	Name string `json:"name"`
}

// Save creates tag when id is empty, otherwise renames it.
func (m *TagManager) Save(ctx context.Context, id, name string) error {
	return m.tags.Mutate(ctx, "Unable to save tag", func(ctx context.Context) (string, error) {
		form := tagForm{Name: strings.TrimSpace(name)}
		if err := validation.ValidateStruct(&form,
			validation.Field(&form.Name, validation.Required, validation.Length(1, 64)),
		); err != nil {
			return "", wrapValidation(err)
		}
		if len(id) == 0 {
			if _, err := m.core.Client.CreateTag(ctx, api.TagForm{Name: form.Name}); err != nil {
				return "", err
			}
			return "Tag created", nil
		}
		if _, err := m.core.Client.UpdateTag(ctx, id, api.TagForm{Name: form.Name}); err != nil {
			return "", err
		}
		return "Tag updated", nil
	})
}

func (m *TagManager) Delete(ctx context.Context, id string) error {
	return m.tags.Mutate(ctx, "Unable to delete tag", func(ctx context.Context) (string, error) {
		if err := m.core.Client.DeleteTag(ctx, id); err != nil {
			return "", err
		}
		return "Tag deleted", nil
	})
}
