package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"grafik/internal/service"
	"grafik/internal/transport/http/ez"
	mdw "grafik/internal/transport/http/middleware"
	resp "grafik/internal/transport/http/response"
)

// Auth 注册/登录/登出/重置密码
type Auth struct {
	Users        *service.UserService
	Log          *zap.Logger
	TokenTTL     time.Duration
	CookieSecure bool
}

func (h *Auth) Priority() int { return 10 }

type registerIn struct {
	Name            string `form:"name" json:"name" binding:"required"`
	Surname         string `form:"surname" json:"surname" binding:"required"`
	Email           string `form:"email" json:"email" binding:"required,email"`
	Agency          string `form:"agency" json:"agency" binding:"required,agency"`
	Password        string `form:"password" json:"password" binding:"required"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
	AcceptTOS       bool   `form:"accept_tos" json:"accept_tos"`
}

type loginIn struct {
	Email    string `form:"email" json:"email" binding:"required,email"`
	Password string `form:"password" json:"password" binding:"required"`
}

type resetRequestIn struct {
	Email string `form:"email" json:"email" binding:"required,email"`
}

type resetIn struct {
	Password        string `form:"password" json:"password" binding:"required"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

func (h *Auth) setToken(c *gin.Context, token string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(mdw.TokenCookie, token, maxAge, "/", "", h.CookieSecure, true)
}

func (h *Auth) MountPublic(g *gin.RouterGroup) {
	e := ez.New(g, h.Log)

	ez.RegisterAction(e, ez.Action[registerIn, ez.Result]{
		Method: http.MethodPost, Path: "/register", Binder: ez.BindForm,
		Redirect: ez.LoginPath, Back: "/register",
		Handler: func(c *gin.Context, in *registerIn) (ez.Result, error) {
			u, mailFailed, err := h.Users.Register(c.Request.Context(), service.RegisterInput{
				Name: in.Name, Surname: in.Surname, Email: in.Email, Agency: in.Agency,
				Password: in.Password, ConfirmPassword: in.ConfirmPassword, AcceptTOS: in.AcceptTOS,
			})
			if err != nil {
				return ez.Result{}, err
			}
			if mailFailed {
				return ez.Result{Level: resp.StatusWarning, Data: u,
					Message: "Rejestracja pomyślna, ale wystąpił problem z wysyłką e-maila powitalnego."}, nil
			}
			return ez.Result{Message: "Rejestracja pomyślna! Możesz się teraz zalogować.", Data: u}, nil
		},
	})

	ez.RegisterAction(e, ez.Action[loginIn, ez.Result]{
		Method: http.MethodPost, Path: "/login", Binder: ez.BindForm,
		Redirect: "/", Back: ez.LoginPath,
		Handler: func(c *gin.Context, in *loginIn) (ez.Result, error) {
			u, token, err := h.Users.Login(c.Request.Context(), in.Email, in.Password)
			if err != nil {
				return ez.Result{}, err
			}
			h.setToken(c, token, int(h.TokenTTL.Seconds()))
			return ez.Result{Data: gin.H{"user": u, "token": token}}, nil
		},
	})

	logout := func(c *gin.Context, _ *struct{}) (ez.Result, error) {
		h.setToken(c, "", -1)
		return ez.Result{Message: "Zostałeś pomyślnie wylogowany.", Level: resp.StatusInfo}, nil
	}
	ez.RegisterAction(e, ez.Action[struct{}, ez.Result]{
		Method: http.MethodPost, Path: "/logout", Binder: ez.BindNone, Redirect: ez.LoginPath, Handler: logout,
	})
	ez.RegisterAction(e, ez.Action[struct{}, ez.Result]{
		Method: http.MethodGet, Path: "/logout", Binder: ez.BindNone, Handler: logout,
	})

	ez.RegisterAction(e, ez.Action[resetRequestIn, ez.Result]{
		Method: http.MethodPost, Path: "/reset_password", Binder: ez.BindForm,
		Redirect: ez.LoginPath, Back: "/reset_password",
		Handler: func(c *gin.Context, in *resetRequestIn) (ez.Result, error) {
			const msg = "Jeśli konto istnieje, wysłano instrukcję resetowania hasła."
			if h.Users.RequestReset(c.Request.Context(), in.Email) {
				return ez.Result{Level: resp.StatusWarning, Message: msg + " (problem z wysyłką)"}, nil
			}
			return ez.Result{Level: resp.StatusInfo, Message: msg}, nil
		},
	})

	ez.RegisterAction(e, ez.Action[resetIn, ez.Result]{
		Method: http.MethodPost, Path: "/reset_password/:token", Binder: ez.BindForm,
		Redirect: ez.LoginPath, Back: "/reset_password/:token",
		Handler: func(c *gin.Context, in *resetIn) (ez.Result, error) {
			if err := h.Users.ResetPassword(c.Request.Context(), c.Param("token"), in.Password, in.ConfirmPassword); err != nil {
				return ez.Result{}, err
			}
			return ez.Result{Message: "Twoje hasło zostało zaktualizowane! Możesz się teraz zalogować."}, nil
		},
	})

	// 前端读取一次性提示
	ez.RegisterAction(e, ez.Action[struct{}, *ez.FlashMsg]{
		Method: http.MethodGet, Path: "/flash", Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (*ez.FlashMsg, error) {
			f, ok := ez.PopFlash(c)
			if !ok {
				return nil, nil
			}
			return &f, nil
		},
	})
}
