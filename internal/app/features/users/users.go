// internal/app/features/users/users.go
package users

// Terminology: User Identifiers
//   - UserID / userID / user_id: The MongoDB ObjectID (_id) that uniquely identifies a user record
//   - LoginID / loginID / login_id: The human-readable string users type to log in

import (
	"errors"
	"net/http"
	"strings"

	errorsfeature "github.com/dalemusser/strataportal/internal/app/features/errors"
	"github.com/dalemusser/strataportal/internal/app/store/storeutil"
	userstore "github.com/dalemusser/strataportal/internal/app/store/users"
	"github.com/dalemusser/strataportal/internal/app/system/auditlog"
	"github.com/dalemusser/strataportal/internal/app/system/auth"
	"github.com/dalemusser/strataportal/internal/app/system/authutil"
	"github.com/dalemusser/strataportal/internal/app/system/formutil"
	"github.com/dalemusser/strataportal/internal/app/system/inputval"
	"github.com/dalemusser/strataportal/internal/app/system/listpage"
	"github.com/dalemusser/strataportal/internal/app/system/normalize"
	"github.com/dalemusser/strataportal/internal/app/system/tableview"
	"github.com/dalemusser/strataportal/internal/app/system/timeouts"
	"github.com/dalemusser/strataportal/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const (
	basePath     = "/users"
	entity       = "user"
	msgLastAdmin = "The portal needs at least one active admin."
)

// Handler serves user management. Admins only.
type Handler struct {
	userStore   *userstore.Store
	errLog      *errorsfeature.ErrorLogger
	auditLogger *auditlog.Logger
	logger      *zap.Logger
	tableOpts   []tableview.Option
}

// NewHandler creates a users Handler.
func NewHandler(db *mongo.Database, errLog *errorsfeature.ErrorLogger, auditLogger *auditlog.Logger, logger *zap.Logger, tableOpts ...tableview.Option) *Handler {
	return &Handler{
		userStore:   userstore.New(db),
		errLog:      errLog,
		auditLogger: auditLogger,
		logger:      logger,
		tableOpts:   tableOpts,
	}
}

// Routes returns a chi.Router with user management routes mounted.
func Routes(h *Handler, sessionMgr *auth.SessionManager) http.Handler {
	r := chi.NewRouter()
	r.Use(sessionMgr.RequireRole(models.RoleAdmin))

	r.Get("/", h.list)
	r.Get("/new", h.showNew)
	r.Post("/new", h.create)
	r.Get("/{id}", h.show)
	r.Get("/{id}/edit", h.showEdit)
	r.Post("/{id}", h.update)
	r.Post("/{id}/disable", h.disable)
	r.Post("/{id}/enable", h.enable)
	r.Post("/{id}/reset-password", h.resetPassword)
	return r
}

func authLabel(method string) string {
	for _, m := range models.AllAuthMethods {
		if m.Value == method {
			return m.Label
		}
	}
	return method
}

func columns() []tableview.Column[models.User] {
	return []tableview.Column[models.User]{
		{Key: "login", Label: "Login ID", Value: func(u models.User) string { return u.LoginID }},
		{Key: "name", Label: "Name", Value: func(u models.User) string { return u.FullName }},
		{Key: "role", Label: "Role", Value: func(u models.User) string { return u.Role }},
		{Key: "department", Label: "Department", Value: func(u models.User) string { return u.Department }},
		{Key: "auth", Label: "Sign-in", Value: func(u models.User) string { return authLabel(u.AuthMethod) }},
		{Key: "status", Label: "Status", Value: func(u models.User) string { return u.Status }},
	}
}

func (h *Handler) newView() *tableview.View[models.User, string] {
	opts := append([]tableview.Option{tableview.WithDefaultSort("login", tableview.Ascending)}, h.tableOpts...)
	return tableview.New(func(u models.User) string { return u.ID.Hex() }, columns(), opts...)
}

type listData struct {
	formutil.Base
	Table        tableview.VM
	Rows         []models.User
	Form         *formData
	Record       *models.User
	PasswordHint string
}

type formData struct {
	Action      string
	Submit      string
	IsNew       bool
	LoginID     string
	FullName    string
	Role        string
	AuthMethod  string
	Department  string
	Roles       []string
	AuthMethods []models.AuthMethod
}

// userInput is the submitted form. Password is only read on create.
type userInput struct {
	LoginID    string `json:"login_id" validate:"required,min=3,max=50" label:"Login ID"`
	FullName   string `json:"full_name" validate:"required,max=200" label:"Name"`
	Role       string `json:"role" validate:"required,role" label:"Role"`
	AuthMethod string `json:"auth_method" validate:"required,authmethod" label:"Sign-in method"`
	Department string `json:"department" validate:"max=200" label:"Department"`
	Password   string `json:"password"`
}

func readForm(r *http.Request) userInput {
	return userInput{
		LoginID:    strings.TrimSpace(r.FormValue("login_id")),
		FullName:   strings.TrimSpace(r.FormValue("full_name")),
		Role:       normalize.Role(r.FormValue("role")),
		AuthMethod: strings.ToLower(strings.TrimSpace(r.FormValue("auth_method"))),
		Department: strings.TrimSpace(r.FormValue("department")),
		Password:   r.FormValue("password"),
	}
}

func formFrom(in userInput, action, submit string, isNew bool) *formData {
	return &formData{
		Action:      action,
		Submit:      submit,
		IsNew:       isNew,
		LoginID:     in.LoginID,
		FullName:    in.FullName,
		Role:        in.Role,
		AuthMethod:  in.AuthMethod,
		Department:  in.Department,
		Roles:       models.AllRoles(),
		AuthMethods: models.AllAuthMethods,
	}
}

func newData(r *http.Request) listData {
	return listData{
		Base:         formutil.NewBase(r, "Users", "/dashboard"),
		PasswordHint: authutil.PasswordRules(),
	}
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, data listData) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.logger, "list users")
	defer cancel()

	all, err := h.userStore.List(ctx, nil)
	if err != nil {
		h.errLog.Fail(w, r, "failed to list users", err)
		return
	}
	res, vm := tableview.Load(h.newView(), r, all, basePath)
	data.Table = vm
	data.Rows = res.Rows
	listpage.Render(w, r, "users", data)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, newData(r))
}

func (h *Handler) showNew(w http.ResponseWriter, r *http.Request) {
	data := newData(r)
	data.Form = formFrom(userInput{Role: models.RoleFaculty, AuthMethod: models.AuthPassword}, basePath+"/new", "Create", true)
	h.render(w, r, data)
}

func recordErrors(res *inputval.Result, data *listData) {
	for field, msg := range res.ByField() {
		data.FieldError(field, msg)
	}
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	in := readForm(r)
	data := newData(r)
	data.Form = formFrom(in, basePath+"/new", "Create", true)

	recordErrors(inputval.Validate(in), &data)
	var hash *string
	if in.AuthMethod == models.AuthPassword {
		if err := authutil.ValidatePassword(in.Password, in.LoginID); err != nil {
			data.FieldError("password", err.Error())
		} else if hashed, err := authutil.HashPassword(in.Password); err != nil {
			h.errLog.Fail(w, r, "failed to hash password", err)
			return
		} else {
			hash = &hashed
		}
	}
	if data.HasErrors() {
		data.Summary()
		h.render(w, r, data)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.logger, "create user")
	defer cancel()
	u, err := h.userStore.Create(ctx, userstore.CreateInput{
		FullName:     in.FullName,
		LoginID:      in.LoginID,
		AuthMethod:   in.AuthMethod,
		Role:         in.Role,
		Department:   in.Department,
		PasswordHash: hash,
	})
	if errors.Is(err, userstore.ErrDuplicateLoginID) {
		data.FieldError("login_id", "A user with this login ID already exists.")
		data.Summary()
		h.render(w, r, data)
		return
	}
	if err != nil {
		h.errLog.Fail(w, r, "failed to create user", err)
		return
	}

	h.auditLogger.RecordCreated(ctx, r, entity, u.LoginID, u.FullName)
	http.Redirect(w, r, basePath, http.StatusSeeOther)
}

// load fetches the user named by the {id} URL parameter, answering 404 or
// 500 itself when it returns nil.
func (h *Handler) load(w http.ResponseWriter, r *http.Request) *models.User {
	id, err := storeutil.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		http.NotFound(w, r)
		return nil
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.logger, "get user")
	defer cancel()

	u, err := h.userStore.Get(ctx, id)
	if errors.Is(err, storeutil.ErrNotFound) {
		http.NotFound(w, r)
		return nil
	}
	if err != nil {
		h.errLog.Fail(w, r, "failed to load user", err)
		return nil
	}
	return u
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	u := h.load(w, r)
	if u == nil {
		return
	}
	data := newData(r)
	data.Record = u
	h.render(w, r, data)
}

func (h *Handler) showEdit(w http.ResponseWriter, r *http.Request) {
	u := h.load(w, r)
	if u == nil {
		return
	}
	data := newData(r)
	data.Form = formFrom(userInput{
		LoginID:    u.LoginID,
		FullName:   u.FullName,
		Role:       u.Role,
		AuthMethod: u.AuthMethod,
		Department: u.Department,
	}, basePath+"/"+u.ID.Hex(), "Save", false)
	h.render(w, r, data)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	u := h.load(w, r)
	if u == nil {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	in := readForm(r)
	in.LoginID = u.LoginID // fixed once created
	data := newData(r)
	data.Form = formFrom(in, basePath+"/"+u.ID.Hex(), "Save", false)

	recordErrors(inputval.Validate(in), &data)
	if in.AuthMethod == models.AuthPassword && u.PasswordHash == nil {
		data.FieldError("auth_method", "Set a password with Reset password before switching to password sign-in.")
	}
	if data.HasErrors() {
		data.Summary()
		h.render(w, r, data)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.logger, "update user")
	defer cancel()

	err := h.userStore.Update(ctx, u.ID, userstore.UpdateInput{
		FullName:   in.FullName,
		AuthMethod: in.AuthMethod,
		Role:       in.Role,
		Department: in.Department,
	})
	switch {
	case errors.Is(err, userstore.ErrLastAdmin):
		data.FieldError("role", msgLastAdmin)
		data.Summary()
		h.render(w, r, data)
		return
	case errors.Is(err, storeutil.ErrNotFound):
		http.NotFound(w, r)
		return
	case err != nil:
		h.errLog.Fail(w, r, "failed to update user", err)
		return
	}

	h.auditLogger.RecordUpdated(ctx, r, entity, u.LoginID, in.FullName)
	http.Redirect(w, r, basePath, http.StatusSeeOther)
}

func (h *Handler) disable(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, models.StatusDisabled)
}

func (h *Handler) enable(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, models.StatusActive)
}

func (h *Handler) conflict(w http.ResponseWriter, r *http.Request, u *models.User, msg string) {
	data := newData(r)
	data.Record = u
	data.SetError(msg)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusConflict)
	h.render(w, r, data)
}

// setStatus enables or disables a user. Admins cannot disable themselves
// or the last active admin.
func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request, status string) {
	u := h.load(w, r)
	if u == nil {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.logger, "set user status")
	defer cancel()

	if me, ok := auth.CurrentUser(r); ok && me.ID == u.ID.Hex() && status == models.StatusDisabled {
		h.conflict(w, r, u, "You cannot disable your own account.")
		return
	}

	if u.Status != status {
		err := h.userStore.SetStatus(ctx, u.ID, status)
		if errors.Is(err, userstore.ErrLastAdmin) {
			h.conflict(w, r, u, msgLastAdmin)
			return
		}
		if err != nil {
			h.errLog.Fail(w, r, "failed to set user status", err)
			return
		}
		h.auditLogger.StatusChanged(ctx, r, entity, u.LoginID, u.Status, status)
	}
	http.Redirect(w, r, basePath+"/"+u.ID.Hex(), http.StatusSeeOther)
}

// resetPassword sets a new password chosen by the admin and switches the
// account to password sign-in.
func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	u := h.load(w, r)
	if u == nil {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	password := r.FormValue("password")
	if err := authutil.ValidatePassword(password, u.LoginID); err != nil {
		data := newData(r)
		data.Record = u
		data.FieldError("password", err.Error())
		data.Summary()
		h.render(w, r, data)
		return
	}
	hash, err := authutil.HashPassword(password)
	if err != nil {
		h.errLog.Fail(w, r, "failed to hash password", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.logger, "reset password")
	defer cancel()
	if err := h.userStore.UpdatePassword(ctx, u.ID, hash); err != nil {
		h.errLog.Fail(w, r, "failed to update password", err)
		return
	}
	if u.AuthMethod != models.AuthPassword {
		err := h.userStore.Update(ctx, u.ID, userstore.UpdateInput{
			FullName:   u.FullName,
			AuthMethod: models.AuthPassword,
			Role:       u.Role,
			Department: u.Department,
		})
		if err != nil {
			h.errLog.Fail(w, r, "failed to switch sign-in method", err)
			return
		}
	}
	h.auditLogger.RecordUpdated(ctx, r, entity, u.LoginID, "password reset")
	http.Redirect(w, r, basePath+"/"+u.ID.Hex(), http.StatusSeeOther)
}
