package v1

// LoginRequest carries officer credentials to the login endpoint.
type LoginRequest struct {
	EmployeeID string `json:"employee_id"`
	Password   string `json:"password"`
}

// LoginResponse is returned by a successful login.
type LoginResponse struct {
	// Token is the bearer token for subsequent calls.
	Token string `json:"token"`
	// AccessToken is accepted as an alias of Token by older backends.
	AccessToken string  `json:"access_token,omitempty"`
	Officer     Officer `json:"officer"`
}

// BearerToken returns whichever token field the backend populated.
func (r LoginResponse) BearerToken() string {
	if r.Token != "" {
		return r.Token
	}
	return r.AccessToken
}

// Officer is the authenticated user of the console.
type Officer struct {
	ID          int64  `json:"id" yaml:"id"`
	EmployeeID  string `json:"employee_id" yaml:"employeeID"`
	Name        string `json:"name" yaml:"name"`
	Email       string `json:"email,omitempty" yaml:"email,omitempty"`
	Phone       string `json:"phone,omitempty" yaml:"phone,omitempty"`
	District    string `json:"district,omitempty" yaml:"district,omitempty"`
	Designation string `json:"designation,omitempty" yaml:"designation,omitempty"`
	Language    string `json:"language,omitempty" yaml:"language,omitempty"`
}

// DisplayName returns the officer name, falling back to the employee id.
func (o Officer) DisplayName() string {
	if o.Name != "" {
		return o.Name
	}
	return o.EmployeeID
}

// ProfileUpdate is the body of the profile update. Empty fields are omitted
// so the backend leaves them unchanged.
type ProfileUpdate struct {
	Name     string `json:"name,omitempty" validate:"omitempty,max=120"`
	Email    string `json:"email,omitempty" validate:"omitempty,email"`
	Phone    string `json:"phone,omitempty" validate:"omitempty,min=7,max=20"`
	Language string `json:"language,omitempty" validate:"omitempty,oneof=en ml"`
}

// Empty reports whether the update would change nothing.
func (u ProfileUpdate) Empty() bool {
	return u == ProfileUpdate{}
}
