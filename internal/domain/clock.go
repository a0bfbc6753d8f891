package domain

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// Clock 一天内的时刻，存储为 HH:MM:SS
type Clock string

const clockLayout = "15:04:05"

// ParseClock 接受 HH:MM 或 HH:MM:SS，小时必须两位（"8:00" 不合法）
func ParseClock(v string) (Clock, error) {
	v = strings.TrimSpace(v)
	// time.Parse 的 "15" 也接受一位小时，这里先卡住长度和冒号位置
	if (len(v) != 5 && len(v) != 8) || v[2] != ':' {
		return "", fmt.Errorf("invalid time of day %q", v)
	}
	for _, layout := range []string{"15:04", clockLayout} {
		if t, err := time.Parse(layout, v); err == nil {
			return Clock(t.Format(clockLayout)), nil
		}
	}
	return "", fmt.Errorf("invalid time of day %q", v)
}

// HHMM 导出、表单回显用
func (c Clock) HHMM() string {
	if len(c) >= 5 {
		return string(c[:5])
	}
	return string(c)
}

func (c Clock) Value() (driver.Value, error) { return string(c), nil }

func (c *Clock) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*c = ""
	case string:
		*c = Clock(v)
	case []byte:
		*c = Clock(v)
	case time.Time:
		*c = Clock(v.Format(clockLayout))
	default:
		return fmt.Errorf("clock: unsupported scan type %T", src)
	}
	return nil
}

// ClockPtr 空字符串返回 nil
func ClockPtr(c Clock) *Clock {
	if c == "" {
		return nil
	}
	return &c
}
