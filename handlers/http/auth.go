package httpHandler

import (
	"errors"
	"net/http"

	"todo-server/auth"
	"todo-server/entities"
	"todo-server/usecases"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
)

const registeredMessage = "Registration successful! Please log in."

type AuthHandler struct {
	useCase  *usecases.UserUseCase
	sessions *auth.SessionManager
	flash    *Flashes
	logger   *log.Logger
}

func NewAuthHandler(useCase *usecases.UserUseCase, sessions *auth.SessionManager, flash *Flashes, logger *log.Logger) *AuthHandler {
	return &AuthHandler{
		useCase:  useCase,
		sessions: sessions,
		flash:    flash,
		logger:   logger,
	}
}

type loginForm struct {
	Username string `form:"username"`
	Password string `form:"password"`
}

type registerForm struct {
	Username string `form:"username" binding:"required,min=3,max=50,excludes=@"`
	Email    string `form:"email" binding:"required,email"`
	Password string `form:"password" binding:"required,min=6,max=72"`
}

// LoginPage handles GET /login
func (h *AuthHandler) LoginPage(c *gin.Context) {
	data := gin.H{"Title": "Sign in"}
	flash := h.flash.Pop(c)

	if c.Query("error") != "" {
		data["LoginError"] = "Invalid username or password."
	}
	if c.Query("logout") != "" {
		data["LogoutMessage"] = "You have been signed out."
	}
	if c.Query("registered") == "true" {
		msg := registeredMessage
		if flash != nil && flash.Kind == FlashSuccess {
			msg = flash.Message
		}
		data["RegistrationSuccess"] = msg
		flash = nil
	}
	data["Flash"] = flash

	c.HTML(http.StatusOK, "login.html", data)
}

// PerformLogin handles POST /perform_login
func (h *AuthHandler) PerformLogin(c *gin.Context) {
	var form loginForm
	if err := c.ShouldBind(&form); err != nil {
		c.Redirect(http.StatusFound, "/login?error=true")
		return
	}

	user, err := h.useCase.Authenticate(c.Request.Context(), form.Username, form.Password)
	switch {
	case errors.Is(err, usecases.ErrBadCredentials), errors.Is(err, usecases.ErrUserDisabled):
		h.logger.Info("login rejected", "login", form.Username, "reason", err)
		c.Redirect(http.StatusFound, "/login?error=true")
		return
	case err != nil:
		h.logger.Error("login failed", "login", form.Username, "err", err)
		c.Redirect(http.StatusFound, "/login?error=true")
		return
	}

	if err := h.sessions.Start(c, user); err != nil {
		h.logger.Error("could not start session", "user_id", user.ID, "err", err)
		c.Redirect(http.StatusFound, "/login?error=true")
		return
	}
	c.Redirect(http.StatusFound, "/")
}

// RegisterPage handles GET /register
func (h *AuthHandler) RegisterPage(c *gin.Context) {
	h.renderRegister(c, http.StatusOK, registerForm{}, nil, "")
}

// PerformRegister handles POST /perform-register
func (h *AuthHandler) PerformRegister(c *gin.Context) {
	var form registerForm
	if err := c.ShouldBind(&form); err != nil {
		verr := usecases.ValidationFromValidator(err)
		h.renderRegister(c, http.StatusBadRequest, form, verr.Fields, "")
		return
	}

	_, err := h.useCase.RegisterNewUser(c.Request.Context(), &entities.User{
		Username: form.Username,
		Email:    form.Email,
		Password: form.Password,
	})

	var verr *usecases.ValidationError
	switch {
	case err == nil:
		h.flash.Set(c, FlashSuccess, registeredMessage)
		c.Redirect(http.StatusFound, "/login?registered=true")
	case errors.As(err, &verr):
		h.renderRegister(c, http.StatusBadRequest, form, verr.Fields, "")
	case errors.Is(err, usecases.ErrDuplicateUsername):
		h.renderRegister(c, http.StatusConflict, form,
			map[string]string{"username": "Username already exists"}, err.Error())
	case errors.Is(err, usecases.ErrDuplicateEmail):
		h.renderRegister(c, http.StatusConflict, form,
			map[string]string{"email": "Email already exists"}, err.Error())
	default:
		h.logger.Error("registration failed", "username", form.Username, "err", err)
		h.renderRegister(c, http.StatusInternalServerError, form, nil, genericErrorMessage)
	}
}

// PerformLogout handles POST /perform_logout
func (h *AuthHandler) PerformLogout(c *gin.Context) {
	if err := h.useCase.EndSessions(c.Request.Context(), auth.CurrentUser(c)); err != nil {
		h.logger.Error("could not revoke sessions", "err", err)
	}
	h.sessions.End(c)
	c.Redirect(http.StatusFound, "/login?logout=true")
}

// DeleteAccount handles POST /account/delete
func (h *AuthHandler) DeleteAccount(c *gin.Context) {
	user := auth.CurrentUser(c)
	if err := h.useCase.DeleteAccount(c.Request.Context(), user); err != nil {
		h.logger.Error("account deletion failed", "err", err)
		h.flash.Set(c, FlashError, genericErrorMessage)
		c.Redirect(http.StatusFound, "/")
		return
	}
	h.sessions.End(c)
	c.Redirect(http.StatusFound, "/login?logout=true")
}

func (h *AuthHandler) renderRegister(c *gin.Context, status int, form registerForm, fieldErrors map[string]string, message string) {
	form.Password = ""
	if fieldErrors == nil {
		fieldErrors = map[string]string{}
	}
	c.HTML(status, "register.html", gin.H{
		"Title":             "Register",
		"Flash":             h.flash.Pop(c),
		"Form":              form,
		"FieldErrors":       fieldErrors,
		"RegistrationError": message,
	})
}
