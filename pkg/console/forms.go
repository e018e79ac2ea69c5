package console

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	v1 "github.com/digitalkrishi/officer-console/api/v1"
)

var validate = validator.New()

type loginForm struct {
	EmployeeID string `form:"employee_id" validate:"required,max=64"`
	Password   string `form:"password" validate:"required"`
}

func (f *loginForm) normalize() {
	f.EmployeeID = strings.TrimSpace(f.EmployeeID)
}

type respondForm struct {
	Response string `form:"response"`
	ReturnTo string `form:"return_to"`
	// Text is the trimmed response that is sent.
	Text string `form:"-" validate:"required"`
}

func (f *respondForm) normalize() {
	f.Text = strings.TrimSpace(f.Response)
	f.ReturnTo = safeReturnTo(f.ReturnTo)
}

type profileForm struct {
	Name     string `form:"name"`
	Email    string `form:"email"`
	Phone    string `form:"phone"`
	Language string `form:"language"`
}

// update returns the fields the officer filled in.
func (f profileForm) update() v1.ProfileUpdate {
	return v1.ProfileUpdate{
		Name:     strings.TrimSpace(f.Name),
		Email:    strings.TrimSpace(f.Email),
		Phone:    strings.TrimSpace(f.Phone),
		Language: strings.TrimSpace(f.Language),
	}
}

// changedFields names the non-empty fields of u for the audit trail.
func changedFields(u v1.ProfileUpdate) []string {
	var fields []string
	if u.Name != "" {
		fields = append(fields, "name")
	}
	if u.Email != "" {
		fields = append(fields, "email")
	}
	if u.Phone != "" {
		fields = append(fields, "phone")
	}
	if u.Language != "" {
		fields = append(fields, "language")
	}
	return fields
}

type language struct {
	Code string
	Name string
}

var languages = []language{
	{Code: "en", Name: "English"},
	{Code: "ml", Name: "Malayalam"},
}

func profileFormFrom(o v1.Officer) profileForm {
	return profileForm{Name: o.Name, Email: o.Email, Phone: o.Phone, Language: o.Language}
}

// validationMessage turns validator errors into one sentence for the officer.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Please check the form and try again."
	}
	fe := verrs[0]
	field := fieldLabel(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required.", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address.", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters.", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters.", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s.", field, fe.Param())
	}
	return fmt.Sprintf("%s is invalid.", field)
}

func fieldLabel(field string) string {
	switch field {
	case "EmployeeID":
		return "Employee ID"
	case "Text":
		return "Response"
	}
	return field
}

// safeReturnTo keeps redirects on this host.
func safeReturnTo(path string) string {
	if !strings.HasPrefix(path, "/") || strings.HasPrefix(path, "//") || strings.Contains(path, `\`) {
		return "/escalations"
	}
	return path
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}
