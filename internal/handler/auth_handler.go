/*
Package handler provides HTTP handler functions for user authentication and management.
*/
package handler

import (
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"policethief/internal/app/user"
	"policethief/internal/pkg/auth/jwt"
	"policethief/internal/pkg/errs"
	"policethief/internal/pkg/logx"
	"policethief/internal/pkg/randx"
	"policethief/internal/pkg/req"
	"policethief/internal/pkg/resp"
)

const (
	MinNicknameLength = 2
	MaxNicknameLength = 12
)

var (
	usernameRegex = regexp.MustCompile(`^[a-z0-9_]{4,20}$`)
)

type RegisterInput struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	Nickname  string `json:"nickname"`
	BirthYear int    `json:"birthYear"`
}

// profileResponse is a profile with the experience needed for the next level.
type profileResponse struct {
	user.Profile
	NextThreshold int `json:"nextThreshold"`
}

func newProfileResponse(p user.Profile) profileResponse {
	return profileResponse{Profile: p, NextThreshold: p.NextThreshold()}
}

func issueToken(w http.ResponseWriter, deps *AppDeps, p user.Profile) {
	token, err := jwt.GenerateToken(&jwt.Payload{ID: p.ID, Nickname: p.Nickname}, deps.Config.JWTSecret, jwt.IdentityExpiration)
	if err != nil {
		logx.Error(err, "jwt generation failed", "user_id", p.ID)
		resp.RespondError(w, errs.NewError(errs.ErrUnknown))
		return
	}

	resp.RespondSuccess(w, map[string]any{
		"token": token,
		"user":  newProfileResponse(p),
	})
}

// HandleRegister creates an account and signs the new player in.
func HandleRegister(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if identity(r) != nil {
			resp.RespondError(w, errs.NewError(errs.ErrAlreadyLoggedIn))
			return
		}

		var input RegisterInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, customErr)
			return
		}

		if !usernameRegex.MatchString(input.Username) {
			resp.RespondError(w, errs.NewError(errs.ErrInvalidUsername))
			return
		}

		passwordLen := utf8.RuneCountInString(input.Password)
		if passwordLen < 6 || passwordLen > 50 {
			resp.RespondError(w, errs.NewError(errs.ErrInvalidPassword))
			return
		}

		now := time.Now()
		if input.BirthYear < user.MinBirthYear || input.BirthYear > now.Year() {
			resp.RespondError(w, errs.NewError(errs.ErrInvalidBirthYear))
			return
		}

		nickname := strings.TrimSpace(input.Nickname)
		if nickname == "" {
			generated, err := randx.Nickname()
			if err != nil {
				resp.RespondError(w, errs.NewError(errs.ErrUnknown, err))
				return
			}
			nickname = generated
		} else if n := utf8.RuneCountInString(nickname); n < MinNicknameLength || n > MaxNicknameLength {
			resp.RespondError(w, errs.NewError(errs.ErrInvalidNickname))
			return
		}

		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
		if err != nil {
			resp.RespondError(w, errs.NewError(errs.ErrUnknown, err))
			return
		}

		profile := user.NewProfile(randx.ID(), input.Username, nickname, input.BirthYear, now)
		profile.LastLoginAt = now

		if err := deps.Users.CreateUser(r.Context(), profile, string(hashedPassword)); err != nil {
			if errors.Is(err, user.ErrAlreadyExists) || errors.Is(err, user.ErrNicknameTaken) {
				logx.Warn("registration conflict", "username", input.Username, "error", err.Error())
			}
			resp.RespondError(w, errs.FromDomain(err))
			return
		}

		issueToken(w, deps, profile)
	}
}

type LoginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HandleLogin verifies user credentials and issues a JWT token.
func HandleLogin(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if identity(r) != nil {
			resp.RespondError(w, errs.NewError(errs.ErrAlreadyLoggedIn))
			return
		}

		var input LoginInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, customErr)
			return
		}

		cred, err := deps.Users.GetCredentials(r.Context(), input.Username)
		if err != nil {
			if !errors.Is(err, user.ErrNotFound) {
				logx.Error(err, "login: credential lookup failed", "username", input.Username)
			}
			resp.RespondError(w, errs.NewError(errs.ErrInvalidCredentials))
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(input.Password)); err != nil {
			logx.Warn("login: password mismatch", "username", input.Username)
			resp.RespondError(w, errs.NewError(errs.ErrInvalidCredentials))
			return
		}

		if err := deps.Users.TouchLogin(r.Context(), cred.UserID, time.Now()); err != nil {
			logx.Error(err, "login: failed to update last_login_at", "user_id", cred.UserID)
		}

		profile, err := deps.Users.GetUserByID(r.Context(), cred.UserID)
		if err != nil {
			resp.RespondError(w, errs.FromDomain(err))
			return
		}

		issueToken(w, deps, profile)
	}
}
