package handlers

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/01moynul/storefront-golang/internal/auth"
	"github.com/01moynul/storefront-golang/internal/database"
	"github.com/01moynul/storefront-golang/internal/models"
	"github.com/01moynul/storefront-golang/internal/pagination"
	"github.com/gin-gonic/gin"
)

const (
	userNotFound = "User not found"
	userSelect   = "SELECT id, email, phone, first_name, last_name, password_hash, is_staff, is_active, created_at FROM users"
)

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.Phone, &u.FirstName, &u.LastName, &u.PasswordHash, &u.IsStaff, &u.IsActive, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// --- User Registration ---

// RegisterUserInput is separate from models.User because the caller must
// not be able to choose an id or the staff flag.
type RegisterUserInput struct {
	FirstName string `json:"first_name" binding:"required,max=150"`
	LastName  string `json:"last_name" binding:"required,max=150"`
	Email     string `json:"email" binding:"required,email,max=254"`
	Phone     string `json:"phone" binding:"required,max=32"`
	Password  string `json:"password" binding:"required,min=8,max=128"`
	Password2 string `json:"password2" binding:"required,eqfield=Password"`
}

// Register is the handler for POST /users/register/
func (h *Handlers) Register(c *gin.Context) {
	ctx := c.Request.Context()

	// 1. --- Bind & Validate JSON ---
	var input RegisterUserInput
	if !bindJSON(c, &input) {
		return
	}

	// 2. --- Create User Model ---
	user := &models.User{
		Email:     strings.ToLower(strings.TrimSpace(input.Email)),
		Phone:     input.Phone,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		IsActive:  true,
		CreatedAt: time.Now(),
	}

	// 3. --- Hash the Password ---
	var password models.Password
	if err := password.Set(input.Password); err != nil {
		serverError(c, "Failed to hash password", err)
		return
	}
	user.PasswordHash = password.Hash

	// 4. --- Save to Database ---
	res, err := h.DB.ExecContext(ctx,
		`INSERT INTO users (email, phone, first_name, last_name, password_hash, is_staff, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, 0, 1, ?)`,
		user.Email, user.Phone, user.FirstName, user.LastName, user.PasswordHash, user.CreatedAt)
	if err != nil {
		if database.IsDuplicateEntry(err) {
			fieldError(c, "email", "user with this email already exists.")
			return
		}
		serverError(c, "Failed to create user", err)
		return
	}
	if user.ID, err = res.LastInsertId(); err != nil {
		serverError(c, "Failed to create user", err)
		return
	}

	// 5. --- Issue Tokens ---
	tokens, err := h.Tokens.GeneratePair(user.ID)
	if err != nil {
		serverError(c, "Failed to generate token", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"user":   user.Public(),
		"tokens": tokens,
	})
}

// --- User Login ---

// LoginInput defines the JSON data expected for a login.
type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

const invalidCredentials = "No active account found with the given credentials"

// Login is the handler for POST /users/login/
func (h *Handlers) Login(c *gin.Context) {
	// 1. --- Bind & Validate JSON ---
	var input LoginInput
	if !bindJSON(c, &input) {
		return
	}

	// 2. --- Find User By Email ---
	user, err := scanUser(h.DB.QueryRowContext(c.Request.Context(),
		userSelect+" WHERE email = ?", strings.ToLower(strings.TrimSpace(input.Email))))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusBadRequest, gin.H{"error": invalidCredentials})
			return
		}
		serverError(c, "Database error", err)
		return
	}

	// 3. --- Check Password & Status ---
	password := models.Password{Hash: user.PasswordHash}
	match, err := password.Matches(input.Password)
	if err != nil {
		serverError(c, "Failed to check password", err)
		return
	}
	if !match || !user.IsActive {
		c.JSON(http.StatusBadRequest, gin.H{"error": invalidCredentials})
		return
	}

	// 4. --- Generate JWT Pair ---
	tokens, err := h.Tokens.GeneratePair(user.ID)
	if err != nil {
		serverError(c, "Failed to generate token", err)
		return
	}

	c.JSON(http.StatusOK, tokens)
}

// RefreshInput carries a refresh token.
type RefreshInput struct {
	Refresh string `json:"refresh" binding:"required"`
}

// RefreshToken is the handler for POST /users/token/refresh/
func (h *Handlers) RefreshToken(c *gin.Context) {
	var input RefreshInput
	if !bindJSON(c, &input) {
		return
	}

	userID, err := h.Tokens.ValidateToken(input.Refresh, auth.TokenTypeRefresh)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Token is invalid or expired"})
		return
	}

	access, err := h.Tokens.GenerateAccess(userID)
	if err != nil {
		serverError(c, "Failed to generate token", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"access": access})
}

// GetMe is the handler for GET /users/me/
func (h *Handlers) GetMe(c *gin.Context) {
	user, err := scanUser(h.DB.QueryRowContext(c.Request.Context(), userSelect+" WHERE id = ?", currentUserID(c)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": userNotFound})
			return
		}
		serverError(c, "Database error", err)
		return
	}
	c.JSON(http.StatusOK, user)
}

//
// --- Admin User Management ---
//

// AdminListUsers is the handler for GET /users/admin/
func (h *Handlers) AdminListUsers(c *gin.Context) {
	ctx := c.Request.Context()

	page, err := pagination.Parse(c.Query("page"), c.Query("page_size"))
	if err != nil {
		respondQueryError(c, err)
		return
	}

	var total int
	if err := h.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&total); err != nil {
		serverError(c, "Failed to count users", err)
		return
	}

	rows, err := h.DB.QueryContext(ctx, userSelect+" ORDER BY id ASC LIMIT ? OFFSET ?", page.Limit(), page.Offset())
	if err != nil {
		serverError(c, "Failed to fetch users", err)
		return
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			serverError(c, "Failed to scan user row", err)
			return
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		serverError(c, "Error iterating user rows", err)
		return
	}

	c.JSON(http.StatusOK, pagination.NewPage(page, total, users))
}

// AdminGetUser is the handler for GET /users/admin/:id/
func (h *Handlers) AdminGetUser(c *gin.Context) {
	id, ok := parseID(c, "id", userNotFound)
	if !ok {
		return
	}

	user, err := scanUser(h.DB.QueryRowContext(c.Request.Context(), userSelect+" WHERE id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": userNotFound})
			return
		}
		serverError(c, "Database error", err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateUserInput is a partial update; absent fields are left alone.
type UpdateUserInput struct {
	FirstName *string `json:"first_name" binding:"omitempty,max=150"`
	LastName  *string `json:"last_name" binding:"omitempty,max=150"`
	Email     *string `json:"email" binding:"omitempty,email,max=254"`
	Phone     *string `json:"phone" binding:"omitempty,max=32"`
	IsActive  *bool   `json:"is_active"`
	IsStaff   *bool   `json:"is_staff"`
}

// AdminUpdateUser is the handler for PUT /users/admin/:id/
func (h *Handlers) AdminUpdateUser(c *gin.Context) {
	ctx := c.Request.Context()

	id, ok := parseID(c, "id", userNotFound)
	if !ok {
		return
	}
	var input UpdateUserInput
	if !bindJSON(c, &input) {
		return
	}

	// 1. --- Dynamically Build UPDATE Query ---
	querySet := ""
	queryArgs := []interface{}{}
	add := func(column string, value interface{}) {
		if querySet != "" {
			querySet += ", "
		}
		querySet += column + " = ?"
		queryArgs = append(queryArgs, value)
	}
	if input.FirstName != nil {
		add("first_name", *input.FirstName)
	}
	if input.LastName != nil {
		add("last_name", *input.LastName)
	}
	if input.Email != nil {
		add("email", strings.ToLower(strings.TrimSpace(*input.Email)))
	}
	if input.Phone != nil {
		add("phone", *input.Phone)
	}
	if input.IsActive != nil {
		add("is_active", *input.IsActive)
	}
	if input.IsStaff != nil {
		add("is_staff", *input.IsStaff)
	}

	tx, err := h.DB.BeginTx(ctx, nil)
	if err != nil {
		serverError(c, "Failed to start transaction", err)
		return
	}
	defer tx.Rollback()

	// 2. --- Check Existence ---
	var existing int64
	if err := tx.QueryRowContext(ctx, "SELECT id FROM users WHERE id = ? FOR UPDATE", id).Scan(&existing); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": userNotFound})
			return
		}
		serverError(c, "Database error", err)
		return
	}

	// 3. --- Apply ---
	if querySet != "" {
		queryArgs = append(queryArgs, id)
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("UPDATE users SET %s WHERE id = ?", querySet), queryArgs...); err != nil {
			if database.IsDuplicateEntry(err) {
				fieldError(c, "email", "user with this email already exists.")
				return
			}
			serverError(c, "Failed to update user", err)
			return
		}
	}

	user, err := scanUser(tx.QueryRowContext(ctx, userSelect+" WHERE id = ?", id))
	if err != nil {
		serverError(c, "Failed to fetch user", err)
		return
	}
	if err := tx.Commit(); err != nil {
		serverError(c, "Failed to commit transaction", err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// AdminDeleteUser is the handler for DELETE /users/admin/:id/
func (h *Handlers) AdminDeleteUser(c *gin.Context) {
	h.deleteByID(c, "users", userNotFound)
}
