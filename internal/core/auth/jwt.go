package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	PurposeSession = "session"
	PurposeReset   = "reset_password"
)

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	UID     uint   `json:"uid"`
	Status  string `json:"status"`
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

type JWTer struct {
	Secret   []byte
	Issuer   string
	TTL      time.Duration
	ResetTTL time.Duration
	Now      func() time.Time
}

func (j *JWTer) now() time.Time {
	if j.Now != nil {
		return j.Now()
	}
	return time.Now()
}

// Issue 登录会话 token
func (j *JWTer) Issue(uid uint, status string) (string, error) {
	return j.sign(uid, status, PurposeSession, j.TTL)
}

// IssueReset 重置密码 token，与会话 token 用 purpose 区分
func (j *JWTer) IssueReset(uid uint) (string, error) {
	ttl := j.ResetTTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return j.sign(uid, "", PurposeReset, ttl)
}

func (j *JWTer) sign(uid uint, status, purpose string, ttl time.Duration) (string, error) {
	now := j.now()
	claims := Claims{
		UID:     uid,
		Status:  status,
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatUint(uint64(uid), 10),
			Issuer:    j.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.Secret)
}

// Parse 只接受会话 token
func (j *JWTer) Parse(tokenStr string) (*Claims, error) {
	return j.parse(tokenStr, PurposeSession)
}

// ParseReset 只接受重置 token
func (j *JWTer) ParseReset(tokenStr string) (*Claims, error) {
	return j.parse(tokenStr, PurposeReset)
}

func (j *JWTer) parse(tokenStr, purpose string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithIssuer(j.Issuer), jwt.WithTimeFunc(j.now)}
	if purpose == PurposeSession {
		opts = append(opts, jwt.WithLeeway(60*time.Second))
	}
	t, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected alg")
		}
		return j.Secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	c, ok := t.Claims.(*Claims)
	if !ok || !t.Valid || c.Purpose != purpose || c.UID == 0 {
		return nil, ErrInvalidToken
	}
	return c, nil
}
