package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"grafik/internal/domain"
	"grafik/internal/service"
	"grafik/internal/transport/http/ez"
	resp "grafik/internal/transport/http/response"
)

// Trips 行程详情、报名、管理操作、日历数据
type Trips struct {
	Trips   *service.TripService
	Signups *service.SignupService
	Log     *zap.Logger
}

type addTripIn struct {
	Title       string `form:"title" json:"title" binding:"required,max=200"`
	TripDate    string `form:"trip_date" json:"trip_date" binding:"required"`
	Spots       string `form:"spots" json:"spots"`
	IsConfirmed bool   `form:"is_confirmed" json:"is_confirmed"`
	Notes       string `form:"notes" json:"notes"`
}

type signupIn struct {
	Action string `form:"action" json:"action" binding:"required"`
}

func signupLevel(r service.SignupResult) string {
	switch {
	case r.Effect == service.EffectNone:
		return resp.StatusInfo
	case r.Effect == service.EffectCreate && r.Status != domain.SignupConfirmed:
		return resp.StatusInfo
	}
	return resp.StatusSuccess
}

func (h *Trips) MountAPI(g *gin.RouterGroup) {
	e := ez.New(g, h.Log)

	ez.RegisterAction(e, ez.Action[struct{}, []service.Event]{
		Method: http.MethodGet, Path: "/api/events", Binder: ez.BindNone, Auth: true,
		Handler: func(c *gin.Context, _ *struct{}) ([]service.Event, error) {
			return h.Trips.Events(c.Request.Context())
		},
	})

	ez.RegisterAction(e, ez.Action[struct{}, *service.Fragment]{
		Method: http.MethodGet, Path: "/api/trip-details-fragment/:id", Binder: ez.BindNone, Auth: true,
		Handler: func(c *gin.Context, _ *struct{}) (*service.Fragment, error) {
			id, err := ez.ParamID(c, "id")
			if err != nil {
				return nil, ez.NotFound("Zlecenie nie znalezione")
			}
			f, err := h.Trips.Fragment(c.Request.Context(), id)
			if errors.Is(err, domain.ErrNotFound) {
				return nil, ez.NotFound("Zlecenie nie znalezione")
			}
			return f, err
		},
	})

	ez.RegisterAction(e, ez.Action[struct{}, *service.TripDetails]{
		Method: http.MethodGet, Path: "/trips/:id", Binder: ez.BindNone, Auth: true,
		Handler: func(c *gin.Context, _ *struct{}) (*service.TripDetails, error) {
			id, err := ez.ParamID(c, "id")
			if err != nil {
				return nil, err
			}
			return h.Trips.Details(c.Request.Context(), id, ez.CurrentUser(c))
		},
	})

	ez.RegisterAction(e, ez.Action[signupIn, ez.Result]{
		Method: http.MethodPost, Path: "/trips/:id/signup", Binder: ez.BindForm, Auth: true,
		Redirect: "/trips/:id", Back: "/trips/:id",
		Handler: func(c *gin.Context, in *signupIn) (ez.Result, error) {
			id, err := ez.ParamID(c, "id")
			if err != nil {
				return ez.Result{}, err
			}
			action, err := domain.ParseSignupAction(in.Action)
			if err != nil {
				return ez.Result{}, err
			}
			r, err := h.Signups.Apply(c.Request.Context(), id, ez.CurrentUser(c), action)
			if err != nil {
				return ez.Result{}, err
			}
			return ez.Result{Level: signupLevel(r), Message: r.Message, Data: gin.H{"status": r.Status}}, nil
		},
	})

	// 以下仅 admin / kierownik
	ez.RegisterAction(e, ez.Action[addTripIn, ez.Result]{
		Method: http.MethodPost, Path: "/trips/add", Binder: ez.BindForm, Roles: managers,
		Redirect: "/", Back: "/trips/add",
		Handler: func(c *gin.Context, in *addTripIn) (ez.Result, error) {
			t, _, err := h.Trips.Create(c.Request.Context(), ez.CurrentUser(c), service.CreateTripInput{
				Title: in.Title, Date: in.TripDate, Spots: in.Spots, IsConfirmed: in.IsConfirmed, Notes: in.Notes,
			})
			if err != nil {
				return ez.Result{}, err
			}
			return ez.Result{Message: "Nowe zlecenie zostało dodane.", Data: t}, nil
		},
	})

	ez.RegisterAction(e, ez.Action[struct{}, ez.Result]{
		Method: http.MethodPost, Path: "/trips/:id/edit", Binder: ez.BindNone, Roles: managers,
		Redirect: "/trips/:id", Back: "/trips/:id",
		Handler: func(c *gin.Context, _ *struct{}) (ez.Result, error) {
			id, err := ez.ParamID(c, "id")
			if err != nil {
				return ez.Result{}, err
			}
			t, err := h.Trips.Edit(c.Request.Context(), id, service.EditTripInput{
				Spots:               formValue(c, "spots"),
				StartTime:           formValue(c, "start_time"),
				DepartureTime:       formValue(c, "departure_time"),
				WorkStartTime:       formValue(c, "work_start_time"),
				WorkEndTime:         formValue(c, "work_end_time"),
				Kilometers:          formValue(c, "kilometers"),
				Notes:               formValue(c, "notes"),
				IsConfirmed:         formHas(c, "is_confirmed"),
				ManagerWasPassenger: formHas(c, "manager_was_passenger"),
			})
			var ve *domain.ValidationError
			if errors.As(err, &ve) {
				return ez.Result{}, ez.BadRequest("Błąd formatu danych: " + ve.Msg)
			}
			if err != nil {
				return ez.Result{}, err
			}
			return ez.Result{Message: "Zmiany zostały zapisane.", Data: t}, nil
		},
	})

	ez.RegisterAction(e, ez.Action[struct{}, ez.Result]{
		Method: http.MethodPost, Path: "/trips/:id/delete", Binder: ez.BindNone, Roles: managers,
		Redirect: "/",
		Handler: func(c *gin.Context, _ *struct{}) (ez.Result, error) {
			id, err := ez.ParamID(c, "id")
			if err != nil {
				return ez.Result{}, err
			}
			if err := h.Trips.Delete(c.Request.Context(), id); err != nil {
				return ez.Result{}, err
			}
			return ez.Result{Message: "Zlecenie zostało trwale usunięte."}, nil
		},
	})

	ez.RegisterAction(e, ez.Action[struct{}, ez.Result]{
		Method: http.MethodPost, Path: "/trips/:id/send-to-office", Binder: ez.BindNone, Roles: managers,
		Redirect: "/trips/:id", Back: "/trips/:id",
		Handler: func(c *gin.Context, _ *struct{}) (ez.Result, error) {
			id, err := ez.ParamID(c, "id")
			if err != nil {
				return ez.Result{}, err
			}
			if err := h.Trips.SendToOffice(c.Request.Context(), id, ez.CurrentUser(c)); err != nil {
				if errors.Is(err, domain.ErrNoRecipients) {
					return ez.Result{}, ez.Warning("Nie zdefiniowano żadnych odbiorców w Twoim profilu.")
				}
				return ez.Result{}, err
			}
			return ez.Result{Message: "Lista uczestników została wysłana do biura."}, nil
		},
	})
}
