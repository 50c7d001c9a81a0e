package managers

import (
	"context"
	"errors"
	"strings"
	"sync"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/horusctf/horus/internal/api"
	"github.com/horusctf/horus/internal/session"
)

var errPasswordMismatch = errors.New("passwords do not match")

func matchPassword(password string) validation.RuleFunc {
	return func(value any) error {
		if confirm, _ := value.(string); confirm != password {
			return errPasswordMismatch
		}
		return nil
	}
}

// RegisterForm represents account registration form.
//
// Password confirmation is checked locally and never sent.
type RegisterForm struct {
	Name            string `json:"name"`
	Surname         string `json:"surname"`
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

func (f RegisterForm) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Name, validation.Required, validation.Length(1, 64)),
		validation.Field(&f.Surname, validation.Length(0, 64)),
		validation.Field(&f.Username, validation.Required, validation.Length(3, 32)),
		validation.Field(&f.Email, validation.Required, is.Email),
		validation.Field(&f.Password, validation.Required, validation.Length(6, 128)),
		validation.Field(&f.ConfirmPassword, validation.By(matchPassword(f.Password))),
	)
}

// Register creates new account.
func Register(ctx context.Context, core *Core, form RegisterForm) error {
	form.Email = strings.TrimSpace(form.Email)
	form.Username = strings.TrimSpace(form.Username)
	if err := form.Validate(); err != nil {
		err = wrapValidation(err)
		core.notify(FailureNotification, ErrorMessage(err, ""))
		return err
	}
	if err := core.Client.Register(ctx, api.RegisterUserForm{
		Name:     form.Name,
		Surname:  form.Surname,
		Username: form.Username,
		Email:    form.Email,
		Password: form.Password,
	}); err != nil {
		core.notify(FailureNotification, ErrorMessage(err, "Unable to register"))
		return err
	}
	core.notify(SuccessNotification, "Account created")
	return nil
}

// ProfileForm represents profile edit form.
//
// Blank password means that password should not be changed.
type ProfileForm struct {
	Name            string `json:"name"`
	Surname         string `json:"surname"`
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// ProfileFormFrom returns form filled with user fields.
func ProfileFormFrom(user api.User) ProfileForm {
	return ProfileForm{
		Name:     user.Name,
		Surname:  user.Surname,
		Username: user.Username,
		Email:    user.Email,
	}
}

func (f ProfileForm) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Name, validation.Required, validation.Length(1, 64)),
		validation.Field(&f.Surname, validation.Length(0, 64)),
		validation.Field(&f.Username, validation.Required, validation.Length(3, 32)),
		validation.Field(&f.Email, validation.Required, is.Email),
		validation.Field(&f.Password, validation.Length(6, 128)),
		validation.Field(&f.ConfirmPassword, validation.By(matchPassword(f.Password))),
	)
}

// Payload returns request payload of form.
//
// Password is included only when it is not blank.
func (f ProfileForm) Payload() api.UpdateProfileForm {
	payload := api.UpdateProfileForm{
		Name:     f.Name,
		Surname:  f.Surname,
		Username: f.Username,
		Email:    f.Email,
	}
	if len(f.Password) > 0 {
		password := f.Password
		payload.Password = &password
	}
	return payload
}

// ProfilePage represents profile page of current user.
type ProfilePage struct {
	core  *Core
	mutex sync.Mutex
	form  ProfileForm
}

// NewProfilePage creates page with form filled from session user.
func NewProfilePage(core *Core) *ProfilePage {
	p := ProfilePage{core: core}
	if core.Session != nil {
		if user, ok := core.Session.User(); ok {
			p.form = ProfileFormFrom(user)
		}
	}
	return &p
}

func (p *ProfilePage) Form() ProfileForm {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.form
}

func (p *ProfilePage) SetForm(form ProfileForm) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.form = form
}

// Submit saves profile.
//
// On success session user is updated from response and password fields
// are cleared. On failure form is kept as is.
func (p *ProfilePage) Submit(ctx context.Context) (api.User, error) {
	form := p.Form()
	if err := form.Validate(); err != nil {
		err = wrapValidation(err)
		p.core.notify(FailureNotification, ErrorMessage(err, ""))
		return api.User{}, err
	}
	user, err := p.core.Client.UpdateMe(ctx, form.Payload())
	if err != nil {
		p.core.notify(FailureNotification, ErrorMessage(err, "Unable to update profile"))
		return api.User{}, err
	}
	if p.core.Session != nil {
		p.core.Session.UpdateUser(session.PatchFromUser(user))
	}
	p.SetForm(ProfileFormFrom(user))
	p.core.notify(SuccessNotification, "Profile updated")
	return user, nil
}
