package notify

import (
	"fmt"
	"strings"

	"grafik/internal/domain"
)

// 模板数据都是可 JSON 往返的 map，入队后在 worker 里照样能渲染

func TripData(t *domain.Trip, baseURL string) map[string]any {
	spots := 0
	if t.Spots != nil {
		spots = *t.Spots
	}
	return map[string]any{
		"id":        t.ID,
		"title":     t.Title,
		"date":      t.TripDate.Format("02.01.2006"),
		"notes":     t.Notes,
		"spots":     spots,
		"confirmed": t.IsConfirmed,
		"url":       fmt.Sprintf("%s/trips/%d", strings.TrimRight(baseURL, "/"), t.ID),
	}
}

func UserData(u *domain.User) map[string]any {
	return map[string]any{
		"name":    u.Name,
		"surname": u.Surname,
		"email":   u.Email,
	}
}

func ParticipantsData(signups []domain.Signup) []map[string]any {
	out := make([]map[string]any, 0, len(signups))
	for _, s := range signups {
		row := map[string]any{"status": string(s.Status)}
		if s.User != nil {
			row["name"] = s.User.Name
			row["surname"] = s.User.Surname
			row["email"] = s.User.Email
		}
		out = append(out, row)
	}
	return out
}
