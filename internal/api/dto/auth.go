package dto

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r LoginRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Username == "" {
		errors["username"] = "El usuario es requerido"
	}
	if r.Password == "" {
		errors["password"] = "La contraseña es requerida"
	}

	return errors
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (r ChangePasswordRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.CurrentPassword == "" {
		errors["current_password"] = "La contraseña actual es requerida"
	}
	if r.NewPassword == "" {
		errors["new_password"] = "La nueva contraseña es requerida"
	} else if len(r.NewPassword) < 8 {
		errors["new_password"] = "La nueva contraseña debe tener al menos 8 caracteres"
	}

	return errors
}

type AuthResponse struct {
	Token string  `json:"token"`
	User  UserDTO `json:"user"`
}

type UserDTO struct {
	ID                 string `json:"id"`
	Username           string `json:"username"`
	FullName           string `json:"full_name"`
	MustChangePassword bool   `json:"must_change_password"`
}
