package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/xmu-se/crms/core"
	"github.com/xmu-se/crms/core/school"
	"github.com/xmu-se/crms/core/user"
)

var errFileRequired = core.NewValidationError(nil, core.FieldError{Field: "file", Error: "this field is required"})

type userApi struct {
	svc       user.ServiceInterface
	schoolSvc school.ServiceInterface
	storage   core.FileStorage
	validate  *validator.Validate
	conf      *core.Config
}

func registerUserAPI(app *echo.Echo, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := userApi{
		svc:       deps.UserSvc,
		schoolSvc: deps.SchoolSvc,
		storage:   deps.Storage,
		validate:  deps.Validate,
		conf:      deps.Conf,
	}

	// un-authed endpoints
	app.POST("/signin", api.signin)
	app.GET("/signin", api.signinWeChat)
	app.POST("/register", api.register)
	app.POST("/password-reset", api.resetPassword)
	app.POST("/password-reset-confirm", api.confirmPasswordReset)

	// authed endpoints
	app.GET("/me", api.retrieveMe, jwt)
	app.PUT("/me", api.updateMe, jwt)
	app.POST("/token-refresh", api.refreshToken, jwt)
	app.POST(deps.Conf.Upload.URLPrefix+"/avatar", api.uploadAvatar, jwt)
}

// Handlers

func (api *userApi) signin(ctx echo.Context) error {
	var data LoginRequest
	if err := bindBody(ctx, &data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.svc.Authenticate(ctx.Request().Context(), data.Phone, data.Password)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	return api.respondWithToken(ctx, usr)
}

// signinWeChat is the WeChat OAuth sign-in, which is not supported.
func (api *userApi) signinWeChat(ctx echo.Context) error {
	return errNotImplemented
}

func (api *userApi) register(ctx echo.Context) error {
	var data user.NewUser
	if err := bindBody(ctx, &data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	data.Type = user.TypeUnbound // bound later with PUT /me
	if err := data.Validate(ctx.Request().Context(), api.validate, api.svc); err != nil {
		return err
	}

	usr, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating user")
	}
	return api.respondWithToken(ctx, usr)
}

func (api *userApi) respondWithToken(ctx echo.Context, usr user.User) error {
	token, err := GenerateToken(GetUserClaims(usr, api.conf), api.conf)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{ID: usr.ID, Name: usr.Name, Type: usr.Type, Token: token})
}

func (api *userApi) refreshToken(ctx echo.Context) error {
	token, err := refreshToken(ctx, api.svc, api.conf)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, TokenResponse{Token: token})
}

func (api *userApi) resetPassword(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := bindBody(ctx, &data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.RequestPasswordReset(ctx.Request().Context(), data.Email); !(err == nil || errors.Cause(err) == user.ErrNotFound) {
		// do not return errors to attackers
		ctx.Logger().Errorf("%+v", errors.Wrap(err, "requesting password reset"))
	}
	return ctx.JSON(http.StatusOK, successResponse{Success: passwordResetRequested})
}

func (api *userApi) confirmPasswordReset(ctx echo.Context) error {
	var data user.ResetUserPassword
	if err := bindBody(ctx, &data); err != nil {
		return errors.Wrap(err, "binding to ResetUserPassword")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.ResetPassword(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, successResponse{Success: "Password has been reset with the new password."})
}

func (api *userApi) retrieveMe(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	resp := MeResponse{User: usr}
	if usr.SchoolID != 0 {
		sch, err := api.schoolSvc.GetByID(ctx.Request().Context(), usr.SchoolID)
		switch {
		case err == nil:
			resp.School = &sch
		case !core.IsNotFound(err):
			return errors.Wrap(err, "finding school by ID")
		}
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *userApi) updateMe(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data user.UpdateUser
	if err := bindBody(ctx, &data); err != nil {
		return errors.Wrap(err, "binding to UpdateUser")
	}
	if err := data.Validate(ctx.Request().Context(), usr, api.validate, api.svc); err != nil {
		return err
	}
	if data.School != nil {
		if _, err := api.schoolSvc.GetByID(ctx.Request().Context(), data.School.ID); err != nil {
			return errors.Wrap(err, "finding school by ID")
		}
	}

	if _, err := api.svc.Update(ctx.Request().Context(), usr, data); err != nil {
		return errors.Wrap(err, "updating user")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *userApi) uploadAvatar(ctx echo.Context) error {
	id, err := getContextUserID(ctx)
	if err != nil {
		return err
	}

	fh, err := ctx.FormFile("file")
	if err != nil {
		return errFileRequired
	}
	file, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer file.Close()

	url, err := api.storage.SaveAvatar(ctx.Request().Context(), file)
	if err != nil {
		return errors.Wrap(err, "saving avatar")
	}
	if _, err := api.svc.SetAvatar(ctx.Request().Context(), id, url); err != nil {
		return errors.Wrap(err, "setting avatar")
	}
	return created(ctx, url, urlResponse{URL: url})
}

const passwordResetRequested = "If the email address supplied is associated with an account on this system, " +
	"an email will arrive in your inbox shortly with instructions to reset your password."

type (
	LoginRequest struct {
		Phone    string `json:"phone" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		ID    int64  `json:"id"`
		Name  string `json:"name"`
		Type  string `json:"type"`
		Token string `json:"jwt"`
	}

	TokenResponse struct {
		Token string `json:"jwt"`
	}

	PasswordResetRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	MeResponse struct {
		user.User
		School *school.School `json:"school"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Phone = core.CleanString(lr.Phone)
	return validate.Struct(lr)
}

func (pr *PasswordResetRequest) Validate(validate *validator.Validate) error {
	pr.Email = core.CleanString(pr.Email, true /* lower */)
	return validate.Struct(pr)
}
