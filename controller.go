package users

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-users/middleware/tokenware"
)

// SelfAlias lets a caller address their own record without knowing its id,
// e.g. GET /users/me.
const SelfAlias = "me"

// Controller exposes the account service over HTTP as a JSON API.
type Controller struct {
	Logger       Logger
	Service      *Service
	Auth         *Authenticator
	ContextKey   string
	ErrorHandler router.ErrorHandler
	ServiceName  string
	Version      string
}

type ControllerOption func(*Controller) *Controller

// WithControllerLogger sets the controller logger.
func WithControllerLogger(l Logger) ControllerOption {
	return func(c *Controller) *Controller {
		if l != nil {
			c.Logger = l
		}
		return c
	}
}

// WithServiceInfo sets the name and version reported by the root route.
func WithServiceInfo(name, version string) ControllerOption {
	return func(c *Controller) *Controller {
		c.ServiceName = name
		c.Version = version
		return c
	}
}

// NewController creates a Controller over the given service and
// authenticator.
func NewController(service *Service, auth *Authenticator, opts ...ControllerOption) *Controller {
	c := &Controller{
		Logger:      defLogger{},
		Service:     service,
		Auth:        auth,
		ContextKey:  "user",
		ServiceName: "go-users",
		Version:     "dev",
	}

	c.ErrorHandler = c.handleError

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Service == nil {
		panic("Missing Service in users controller...")
	}

	if c.Auth == nil {
		panic("Missing Authenticator in users controller...")
	}

	return c
}

// RegisterRoutes mounts the public routes and the protected account routes.
// The protected middleware guards everything under /users.
func RegisterRoutes[T any](app router.Router[T], controller *Controller, protected tokenware.Config) {
	app.Get("/", controller.ServiceInfo).SetName("service-info.get")

	app.Post("/auth/login", controller.Login).SetName("auth-login.post")

	guard := tokenware.New(protected)

	app.Get("/users", controller.List, guard).SetName("users.list")
	app.Post("/users", controller.Create, guard).SetName("users.create")

	app.Get("/users/:id", controller.Show, guard).SetName("users.show")
	app.Patch("/users/:id", controller.Update, guard).SetName("users.update")
	app.Delete("/users/:id", controller.Delete, guard).SetName("users.delete")

	app.Put("/users/:id/password", controller.ChangePassword, guard).SetName("users.password.put")
	app.Patch("/users/:id/password", controller.ChangePassword, guard).SetName("users.password.patch")

	app.Put("/users/:id/token", controller.Revoke, guard).SetName("users.token.put")
	app.Delete("/users/:id/token", controller.Revoke, guard).SetName("users.token.delete")
}

// ServiceInfo reports name and version, mostly for health probes.
func (a *Controller) ServiceInfo(ctx router.Context) error {
	return ctx.JSON(router.StatusOK, map[string]any{
		"service": a.ServiceName,
		"version": a.Version,
	})
}

// LoginRequest payload
type LoginRequest struct {
	Identifier string `form:"identifier" json:"identifier"`
	Password   string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Identifier,
			validation.Required,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

func (a *Controller) Login(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, bindError(err))
	}

	if err := payload.Validate(); err != nil {
		return validationError(ctx, err)
	}

	token, user, err := a.Auth.Login(ctx.Context(), payload.Identifier, payload.Password)
	if err != nil {
		a.Logger.Error("login error: %v", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"token": token,
		"user":  user.Sanitized(),
	})
}

// CreateUserPayload is the admin user-creation payload. Activated is a
// pointer so an omitted flag defaults to true: a freshly created account
// should be able to log in.
type CreateUserPayload struct {
	Username    string `form:"username" json:"username"`
	Email       string `form:"email" json:"email"`
	DisplayName string `form:"display_name" json:"display_name"`
	Password    string `form:"password" json:"password"`
	IsAdmin     bool   `form:"is_admin" json:"is_admin"`
	Activated   *bool  `form:"activated" json:"activated"`
	Locked      bool   `form:"locked" json:"locked"`
}

// Validate will validate the payload
func (r CreateUserPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.Length(2, 100)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.DisplayName, validation.Length(0, 200)),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
	)
}

func (a *Controller) Create(ctx router.Context) error {
	caller, err := RequireUser(ctx, a.ContextKey)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if !caller.IsAdmin {
		return a.ErrorHandler(ctx, ErrAdminOnly)
	}

	payload := new(CreateUserPayload)
	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, bindError(err))
	}

	if err := payload.Validate(); err != nil {
		return validationError(ctx, err)
	}

	hash, err := HashPassword(payload.Password)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	activated := true
	if payload.Activated != nil {
		activated = *payload.Activated
	}

	user, err := a.Service.Create(ctx.Context(), &User{
		Username:     payload.Username,
		Email:        payload.Email,
		DisplayName:  payload.DisplayName,
		PasswordHash: hash,
		IsAdmin:      payload.IsAdmin,
		Activated:    activated,
		Locked:       payload.Locked,
	})
	if err != nil {
		a.Logger.Error("create user error: %v", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusCreated, user.Sanitized())
}

// List returns a batch of accounts. Any authenticated user may browse;
// the records come back sanitized.
func (a *Controller) List(ctx router.Context) error {
	if _, err := RequireUser(ctx, a.ContextKey); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	query := ListQuery{
		Search: ctx.Query("search", ""),
		IDs:    splitQueryList(ctx.Query("ids", "")),
		Skip:   ctx.QueryInt("skip", 0),
		Limit:  ctx.QueryInt("limit", 100),
	}

	page, err := a.Service.List(ctx.Context(), query)
	if err != nil {
		a.Logger.Error("list users error: %v", err)
		return a.ErrorHandler(ctx, err)
	}

	sanitized := make([]*User, len(page.Users))
	for i, u := range page.Users {
		sanitized[i] = u.Sanitized()
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"count": page.Count,
		"skip":  page.Skip,
		"limit": page.Limit,
		"users": sanitized,
	})
}

func (a *Controller) Show(ctx router.Context) error {
	caller, targetID, err := a.authorizeTarget(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if targetID == caller.GetID() {
		return ctx.JSON(router.StatusOK, caller.Sanitized())
	}

	user, err := a.Service.Resolve(ctx.Context(), targetID)
	if err != nil {
		a.Logger.Error("show user error: %v", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, user.Sanitized())
}

// UpdateUserPayload is a sparse patch; absent fields stay untouched.
type UpdateUserPayload struct {
	Username    *string `form:"username" json:"username"`
	Email       *string `form:"email" json:"email"`
	DisplayName *string `form:"display_name" json:"display_name"`
	IsAdmin     *bool   `form:"is_admin" json:"is_admin"`
	Locked      *bool   `form:"locked" json:"locked"`
	Activated   *bool   `form:"activated" json:"activated"`
}

// Validate will validate the payload
func (r UpdateUserPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Length(2, 100)),
		validation.Field(&r.Email, validation.Length(6, 100), is.Email),
		validation.Field(&r.DisplayName, validation.Length(0, 200)),
	)
}

func (r UpdateUserPayload) touchesAdminFields() bool {
	return r.IsAdmin != nil || r.Locked != nil || r.Activated != nil
}

func (a *Controller) Update(ctx router.Context) error {
	caller, targetID, err := a.authorizeTarget(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	payload := new(UpdateUserPayload)
	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, bindError(err))
	}

	if err := payload.Validate(); err != nil {
		return validationError(ctx, err)
	}

	// account state flags are admin-only, even on your own record
	if payload.touchesAdminFields() && !caller.IsAdmin {
		return a.ErrorHandler(ctx, ErrAdminOnly)
	}

	user, err := a.Service.Update(ctx.Context(), targetID, UserPatch{
		Username:    payload.Username,
		Email:       payload.Email,
		DisplayName: payload.DisplayName,
		IsAdmin:     payload.IsAdmin,
		Locked:      payload.Locked,
		Activated:   payload.Activated,
	})
	if err != nil {
		a.Logger.Error("update user error: %v", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, user.Sanitized())
}

// Delete removes an account. Only administrators may delete, including
// their own record.
func (a *Controller) Delete(ctx router.Context) error {
	caller, targetID, err := a.authorizeTarget(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if !caller.IsAdmin {
		return a.ErrorHandler(ctx, ErrAdminOnly)
	}

	if err := a.Service.Delete(ctx.Context(), targetID); err != nil {
		a.Logger.Error("delete user error: %v", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"deleted": targetID,
	})
}

// PasswordChangePayload holds a new password plus its confirmation.
type PasswordChangePayload struct {
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will validate the payload
func (r PasswordChangePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Password,
			validation.Required,
			validation.Length(8, 100),
		),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.Length(8, 100),
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *Controller) ChangePassword(ctx router.Context) error {
	_, targetID, err := a.authorizeTarget(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	payload := new(PasswordChangePayload)
	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, bindError(err))
	}

	if err := payload.Validate(); err != nil {
		return validationError(ctx, err)
	}

	user, err := a.Service.ChangePassword(ctx.Context(), targetID, payload.Password)
	if err != nil {
		a.Logger.Error("change password error: %v", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, user.Sanitized())
}

// Revoke rotates the target's token_id, cutting off every token issued so
// far. The caller's own current token dies with the rest.
func (a *Controller) Revoke(ctx router.Context) error {
	_, targetID, err := a.authorizeTarget(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	user, err := a.Service.Revoke(ctx.Context(), targetID)
	if err != nil {
		a.Logger.Error("revoke tokens error: %v", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"revoked": user.GetID(),
	})
}

// authorizeTarget resolves the :id route param, expands the self alias,
// and enforces the self-or-admin rule.
func (a *Controller) authorizeTarget(ctx router.Context) (*User, string, error) {
	caller, err := RequireUser(ctx, a.ContextKey)
	if err != nil {
		return nil, "", err
	}

	targetID := ctx.Param("id")
	if targetID == "" || targetID == SelfAlias {
		return caller, caller.GetID(), nil
	}

	if !caller.CanManage(targetID) {
		return nil, "", ErrCrossUserModification
	}

	return caller, targetID, nil
}

// splitQueryList parses a comma-separated query value into its non-empty
// elements; an empty value yields nil so the filter stays off.
func splitQueryList(value string) []string {
	if value == "" {
		return nil
	}

	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("values must match")
		}
		return nil
	}
}

// FormatValidationErrorToMap flattens an ozzo validation error into a
// field-to-message map for JSON responses.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		for field, ferr := range verrs {
			out[field] = ferr.Error()
		}
		return out
	}
	if err != nil {
		out["payload"] = err.Error()
	}
	return out
}

func bindError(err error) error {
	return goerrors.Wrap(err, goerrors.CategoryBadInput, "Failed to parse request body").
		WithCode(goerrors.CodeBadRequest)
}

func validationError(ctx router.Context, err error) error {
	return ctx.JSON(router.StatusUnprocessableEntity, map[string]any{
		"error":      "Validation failed",
		"validation": FormatValidationErrorToMap(err),
	})
}

// handleError maps rich errors onto HTTP responses; anything unshaped
// becomes a 500 without leaking the underlying message.
func (a *Controller) handleError(ctx router.Context, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		a.Logger.Error("unhandled error: %v", err)
		return ctx.JSON(router.StatusInternalServerError, map[string]any{
			"error": "Internal server error",
		})
	}

	status := richErr.Code
	if status == 0 {
		status = statusFromCategory(richErr.Category)
	}

	body := map[string]any{
		"error": richErr.Message,
	}
	if richErr.TextCode != "" {
		body["code"] = richErr.TextCode
	}

	return ctx.JSON(status, body)
}

func statusFromCategory(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return router.StatusForbidden
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return router.StatusBadRequest
	case goerrors.CategoryNotFound:
		return router.StatusNotFound
	case goerrors.CategoryConflict:
		return router.StatusConflict
	default:
		return router.StatusInternalServerError
	}
}
