package handler

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"grafik/internal/domain"
	"grafik/internal/service"
	"grafik/internal/sheet"
	"grafik/internal/transport/http/ez"
	resp "grafik/internal/transport/http/response"
)

// Admin 用户管理、结算、归档、清理、导入导出
type Admin struct {
	Admin  *service.AdminService
	Sheets *service.SheetService
	Log    *zap.Logger
}

type statusIn struct {
	Status string `form:"status" json:"status" binding:"required"`
}

// clearMonthIn 只接受 JSON 整数，"2025" 这类字符串按类型错误拒绝
type clearMonthIn struct {
	Year  *int `json:"year" binding:"required"`
	Month *int `json:"month" binding:"required"`
}

type settlementsQuery struct {
	SearchText string `form:"search_text"`
}

type settlementsOut struct {
	*service.SettlementView
	Months []int `json:"months"`
}

// MountAPI 导出只需登录（agency 由 service 校验）
func (h *Admin) MountAPI(g *gin.RouterGroup) {
	e := ez.New(g, h.Log)
	ez.RegisterAction(e, ez.Action[struct{}, ez.File]{
		Method: http.MethodGet, Path: "/admin/export", Binder: ez.BindNone, Auth: true,
		Handler: func(c *gin.Context, _ *struct{}) (ez.File, error) {
			b, name, err := h.Sheets.Export(c.Request.Context(), ez.CurrentUser(c))
			if err != nil {
				return ez.File{}, err
			}
			return ez.File{Name: name, ContentType: sheet.ContentType, Body: b}, nil
		},
	})
}

// MountAdmin 分组已挂 RequireRoles(admin, kierownik)
func (h *Admin) MountAdmin(g *gin.RouterGroup) {
	e := ez.New(g, h.Log)

	ez.RegisterAction(e, ez.Action[struct{}, gin.H]{
		Method: http.MethodGet, Path: "/users", Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			users, err := h.Admin.Users(c.Request.Context())
			if err != nil {
				return nil, err
			}
			return gin.H{"users": users, "statuses": domain.UserStatuses(), "agencies": domain.Agencies()}, nil
		},
	})

	ez.RegisterAction(e, ez.Action[statusIn, ez.Result]{
		Method: http.MethodPost, Path: "/users/set-status/:id", Binder: ez.BindForm,
		Redirect: "/admin/users", Back: "/admin/users",
		Handler: func(c *gin.Context, in *statusIn) (ez.Result, error) {
			id, err := ez.ParamID(c, "id")
			if err != nil {
				return ez.Result{}, ez.NotFound("Użytkownik nie znaleziony.")
			}
			u, err := h.Admin.SetStatus(c.Request.Context(), id, in.Status)
			if errors.Is(err, domain.ErrNotFound) {
				return ez.Result{}, ez.NotFound("Użytkownik nie znaleziony.")
			}
			if err != nil {
				return ez.Result{}, err
			}
			return ez.Result{Message: fmt.Sprintf("Zmieniono status dla %s.", u.FullName()), Data: u}, nil
		},
	})

	ez.RegisterAction(e, ez.Action[agencyIn, ez.Result]{
		Method: http.MethodPost, Path: "/users/set-agency/:id", Binder: ez.BindForm,
		Redirect: "/admin/users", Back: "/admin/users",
		Handler: func(c *gin.Context, in *agencyIn) (ez.Result, error) {
			id, err := ez.ParamID(c, "id")
			if err != nil {
				return ez.Result{}, ez.NotFound("Użytkownik nie znaleziony.")
			}
			u, err := h.Admin.SetAgency(c.Request.Context(), id, in.Agency)
			if errors.Is(err, domain.ErrNotFound) {
				return ez.Result{}, ez.NotFound("Użytkownik nie znaleziony.")
			}
			if err != nil {
				return ez.Result{}, err
			}
			return ez.Result{Message: fmt.Sprintf("Zmieniono agencję dla %s.", u.FullName()), Data: u}, nil
		},
	})

	ez.RegisterAction(e, ez.Action[settlementsQuery, settlementsOut]{
		Method: http.MethodGet, Path: "/settlements", Binder: ez.BindQuery,
		Handler: func(c *gin.Context, in *settlementsQuery) (settlementsOut, error) {
			var month *string
			if v, ok := c.GetQuery("search_month"); ok {
				month = &v
			}
			view, err := h.Admin.Settlements(c.Request.Context(), month, in.SearchText)
			if err != nil {
				return settlementsOut{}, err
			}
			return settlementsOut{SettlementView: view, Months: []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}}, nil
		},
	})

	ez.RegisterAction(e, ez.Action[struct{}, ez.Result]{
		Method: http.MethodPost, Path: "/settlements", Binder: ez.BindNone,
		Back: "/admin/settlements",
		Handler: func(c *gin.Context, _ *struct{}) (ez.Result, error) {
			form := map[string]string{}
			for k, vs := range parsedForm(c) {
				if len(vs) > 0 {
					form[k] = vs[0]
				} else {
					form[k] = ""
				}
			}
			n, err := h.Admin.SaveSettlements(c.Request.Context(), form)
			if err != nil {
				return ez.Result{}, err
			}
			return ez.Result{
				Message:  "Wszystkie zmiany zostały pomyślnie zapisane.",
				Data:     gin.H{"updated": n},
				Location: settlementsBack(c),
			}, nil
		},
	})

	ez.RegisterAction(e, ez.Action[struct{}, []domain.Trip]{
		Method: http.MethodGet, Path: "/archive", Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) ([]domain.Trip, error) {
			return h.Admin.Archived(c.Request.Context())
		},
	})

	ez.RegisterAction(e, ez.Action[struct{}, ez.Result]{
		Method: http.MethodPost, Path: "/archive/run", Binder: ez.BindNone,
		Redirect: "/admin/archive", Back: "/admin/archive",
		Handler: func(c *gin.Context, _ *struct{}) (ez.Result, error) {
			n, err := h.Admin.Archive(c.Request.Context())
			if err != nil {
				return ez.Result{}, err
			}
			return ez.Result{Message: fmt.Sprintf("Pomyślnie zarchiwizowano %d zleceń.", n), Data: gin.H{"archived": n}}, nil
		},
	})

	ez.RegisterAction(e, ez.Action[clearMonthIn, ez.Result]{
		Method: http.MethodPost, Path: "/clear-month", Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *clearMonthIn) (ez.Result, error) {
			year, month := *in.Year, *in.Month
			n, err := h.Admin.ClearMonth(c.Request.Context(), year, month)
			if err != nil {
				return ez.Result{}, err
			}
			return ez.Result{
				Message: fmt.Sprintf("Pomyślnie usunięto %d zleceń z %d/%d.", n, month, year),
				Data:    gin.H{"deleted": n},
			}, nil
		},
	})

	ez.RegisterAction(e, ez.Action[struct{}, ez.File]{
		Method: http.MethodGet, Path: "/import/sample", Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (ez.File, error) {
			b, name, err := h.Sheets.Sample()
			if err != nil {
				return ez.File{}, err
			}
			return ez.File{Name: name, ContentType: sheet.ContentType, Body: b}, nil
		},
	})

	ez.RegisterAction(e, ez.Action[struct{}, ez.Result]{
		Method: http.MethodPost, Path: "/import", Binder: ez.BindNone,
		Redirect: "/", Back: "/admin/import",
		Handler: func(c *gin.Context, _ *struct{}) (ez.Result, error) {
			fh, err := c.FormFile("excel_file")
			var mbe *http.MaxBytesError
			if errors.As(err, &mbe) {
				return ez.Result{}, err
			}
			if err != nil || !strings.EqualFold(filepath.Ext(fh.Filename), ".xlsx") {
				return ez.Result{}, ez.BadRequest("Nie wybrano pliku Excel lub plik ma nieprawidłowe rozszerzenie.")
			}
			f, err := fh.Open()
			if err != nil {
				return ez.Result{}, ez.Internal("", err)
			}
			defer f.Close()
			rows, err := sheet.ReadImport(f)
			if err != nil {
				h.Log.Warn("import: unreadable workbook", zap.String("file", fh.Filename), zap.Error(err))
				return ez.Result{}, ez.BadRequest("Błąd podczas przetwarzania pliku: nieprawidłowy plik Excel.")
			}
			res, err := h.Sheets.Import(c.Request.Context(), ez.CurrentUser(c), rows)
			var ve *domain.ValidationError
			if errors.As(err, &ve) {
				return ez.Result{}, ez.Warning(ve.Msg)
			}
			if err != nil {
				return ez.Result{}, err
			}
			level := resp.StatusSuccess
			if res.Skipped > 0 {
				level = resp.StatusWarning
			}
			return ez.Result{Level: level, Message: res.Message(), Data: res}, nil
		},
	})
}

// settlementsBack 保留原筛选条件
func settlementsBack(c *gin.Context) string {
	loc := "/admin/settlements"
	q := c.Request.URL.Query()
	if len(q) > 0 {
		loc += "?" + q.Encode()
	}
	return loc
}
