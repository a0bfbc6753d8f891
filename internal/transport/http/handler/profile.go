package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"grafik/internal/service"
	"grafik/internal/transport/http/ez"
)

// Profile 个人资料与收件人
type Profile struct {
	Users *service.UserService
	Log   *zap.Logger
}

type changePasswordIn struct {
	OldPassword     string `form:"old_password" json:"old_password" binding:"required"`
	NewPassword     string `form:"new_password" json:"new_password" binding:"required"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

type detailsIn struct {
	Name    string `form:"name" json:"name" binding:"required"`
	Surname string `form:"surname" json:"surname" binding:"required"`
	Agency  string `form:"agency" json:"agency" binding:"required,agency"`
}

type themeIn struct {
	Theme string `form:"theme" json:"theme" binding:"required"`
}

type agencyIn struct {
	Agency string `form:"agency" json:"agency" binding:"required,agency"`
}

type recipientIn struct {
	Email string `form:"email" json:"email" binding:"required,email"`
}

func (h *Profile) MountAPI(g *gin.RouterGroup) {
	e := ez.New(g, h.Log)

	ez.RegisterAction(e, ez.Action[struct{}, *service.Profile]{
		Method: http.MethodGet, Path: "/profile", Binder: ez.BindNone, Auth: true,
		Handler: func(c *gin.Context, _ *struct{}) (*service.Profile, error) {
			return h.Users.Profile(c.Request.Context(), ez.CurrentUser(c))
		},
	})

	ez.RegisterAction(e, ez.Action[changePasswordIn, ez.Result]{
		Method: http.MethodPost, Path: "/profile/change-password", Binder: ez.BindForm, Auth: true,
		Redirect: "/profile", Back: "/profile",
		Handler: func(c *gin.Context, in *changePasswordIn) (ez.Result, error) {
			err := h.Users.ChangePassword(c.Request.Context(), ez.CurrentUser(c), in.OldPassword, in.NewPassword, in.ConfirmPassword)
			if err != nil {
				return ez.Result{}, err
			}
			return ez.Result{Message: "Hasło zostało pomyślnie zaktualizowane."}, nil
		},
	})

	ez.RegisterAction(e, ez.Action[detailsIn, ez.Result]{
		Method: http.MethodPost, Path: "/profile/update-details", Binder: ez.BindForm, Auth: true,
		Redirect: "/profile", Back: "/profile",
		Handler: func(c *gin.Context, in *detailsIn) (ez.Result, error) {
			u := ez.CurrentUser(c)
			if err := h.Users.UpdateDetails(c.Request.Context(), u, in.Name, in.Surname, in.Agency); err != nil {
				return ez.Result{}, err
			}
			return ez.Result{Message: "Dane profilu zostały zaktualizowane.", Data: u}, nil
		},
	})

	ez.RegisterAction(e, ez.Action[themeIn, ez.Result]{
		Method: http.MethodPost, Path: "/profile/change-theme", Binder: ez.BindForm, Auth: true,
		Redirect: "/profile", Back: "/profile",
		Handler: func(c *gin.Context, in *themeIn) (ez.Result, error) {
			if err := h.Users.ChangeTheme(c.Request.Context(), ez.CurrentUser(c), in.Theme); err != nil {
				return ez.Result{}, err
			}
			return ez.Result{Message: "Motyw został zaktualizowany."}, nil
		},
	})

	ez.RegisterAction(e, ez.Action[agencyIn, ez.Result]{
		Method: http.MethodPost, Path: "/profile/change-agency", Binder: ez.BindForm, Auth: true,
		Redirect: "/profile", Back: "/profile",
		Handler: func(c *gin.Context, in *agencyIn) (ez.Result, error) {
			if err := h.Users.ChangeAgency(c.Request.Context(), ez.CurrentUser(c), in.Agency); err != nil {
				return ez.Result{}, err
			}
			return ez.Result{Message: "Agencja została zaktualizowana."}, nil
		},
	})

	ez.RegisterAction(e, ez.Action[recipientIn, ez.Result]{
		Method: http.MethodPost, Path: "/profile/add-recipient", Binder: ez.BindForm, Auth: true,
		Redirect: "/profile", Back: "/profile",
		Handler: func(c *gin.Context, in *recipientIn) (ez.Result, error) {
			rc, err := h.Users.AddRecipient(c.Request.Context(), ez.CurrentUser(c), in.Email)
			if err != nil {
				return ez.Result{}, err
			}
			return ez.Result{Message: "Dodano nowego odbiorcę.", Data: rc}, nil
		},
	})

	ez.RegisterAction(e, ez.Action[struct{}, ez.Result]{
		Method: http.MethodPost, Path: "/profile/delete-recipient/:id", Binder: ez.BindNone, Auth: true,
		Redirect: "/profile", Back: "/profile",
		Handler: func(c *gin.Context, _ *struct{}) (ez.Result, error) {
			id, err := ez.ParamID(c, "id")
			if err != nil {
				return ez.Result{}, err
			}
			if err := h.Users.DeleteRecipient(c.Request.Context(), ez.CurrentUser(c), id); err != nil {
				return ez.Result{}, err
			}
			return ez.Result{Message: "Odbiorca został usunięty."}, nil
		},
	})

	ez.RegisterAction(e, ez.Action[struct{}, gin.H]{
		Method: http.MethodGet, Path: "/api/me", Binder: ez.BindNone, Auth: true,
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			u := ez.CurrentUser(c)
			return gin.H{"user": u, "canManage": u.CanManage()}, nil
		},
	})
}
