package handler

import "time"

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type assignRoleRequest struct {
	RoleName string `json:"role_name" validate:"required,max=64"`
}

type createRoleRequest struct {
	Name string `json:"name" validate:"required,max=64"`
}

type authResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
}

type roleResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type statsResponse struct {
	TotalUsers         int64      `json:"total_users"`
	LastLoginTimestamp *time.Time `json:"last_login_timestamp"`
}
