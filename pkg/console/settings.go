package console

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	v1 "github.com/digitalkrishi/officer-console/api/v1"
	"github.com/digitalkrishi/officer-console/pkg/apiresponses"
	"github.com/digitalkrishi/officer-console/pkg/client"
	"github.com/digitalkrishi/officer-console/pkg/query"
)

type settingsView struct {
	Profile   v1.Officer
	Form      profileForm
	Languages []language
	Error     string
}

func (con *Console) loadProfile(c *gin.Context, req *officerRequest) (v1.Officer, error) {
	profile, err := query.Get(c.Request.Context(), req.cache, query.KeyProfile,
		func(ctx context.Context) (*v1.Officer, error) {
			return req.client.Profile().Get(ctx)
		})
	if profile == nil {
		return req.session.Officer, err
	}
	return *profile, err
}

func (con *Console) getSettings(c *gin.Context) {
	req := officerFrom(c)
	v := con.render.newView("Settings", "settings", req.officer(), nil)
	profile, err := con.loadProfile(c, req)
	if err != nil {
		if client.IsUnauthorized(err) {
			con.toLogin(c)
			return
		}
		con.reqLog(c).Warnw("Failed to load profile", "error", err)
		v.Toasts = append(v.Toasts, Toast{Level: ToastError, Message: "Failed to load profile"})
	}
	v.Data = settingsView{Profile: profile, Form: profileFormFrom(profile), Languages: languages}
	con.render.Page(c, http.StatusOK, "settings", v)
}

func (con *Console) postSettings(c *gin.Context) {
	req := officerFrom(c)
	ctx := c.Request.Context()
	v := con.render.newView("Settings", "settings", req.officer(), nil)

	var form profileForm
	_ = c.ShouldBind(&form)
	sv := settingsView{Profile: req.session.Officer, Form: form, Languages: languages}
	if cached, ok := req.cache.Peek(query.KeyProfile); ok {
		if p, ok2 := cached.(*v1.Officer); ok2 {
			sv.Profile = *p
		}
	}

	update := form.update()
	if update.Empty() {
		sv.Error = "Nothing to update."
		v.Data = sv
		con.render.Page(c, http.StatusUnprocessableEntity, "settings", v)
		return
	}
	if err := validate.Struct(update); err != nil {
		sv.Error = validationMessage(err)
		v.Data = sv
		con.render.Page(c, http.StatusUnprocessableEntity, "settings", v)
		return
	}

	updated, err := req.client.Profile().Update(ctx, update)
	if err != nil {
		if client.IsUnauthorized(err) {
			con.toLogin(c)
			return
		}
		con.reqLog(c).Errorw("Failed to update profile", "error", err)
		sv.Error = "Failed to update profile."
		v.Toasts = append(v.Toasts, Toast{Level: ToastError, Message: "Failed to update profile"})
		v.Data = sv
		con.render.Page(c, apiresponses.BackendStatus(err), "settings", v)
		return
	}

	req.cache.Invalidate(query.KeyProfile)
	con.audit.ProfileUpdated(ctx, req.actor, changedFields(update))
	if updated != nil {
		if updated.EmployeeID == "" {
			updated.EmployeeID = req.session.Officer.EmployeeID
		}
		req.session.Officer = *updated
		if err := con.sessions.Touch(ctx, req.session); err != nil {
			con.reqLog(c).Warnw("Failed to store updated profile in session", "error", err)
		}
		sv.Profile = *updated
		sv.Form = profileFormFrom(*updated)
	}
	v.Officer = req.officer()
	v.Toasts = append(v.Toasts, Toast{Level: ToastSuccess, Message: "Profile updated successfully"})
	v.Data = sv
	con.render.Page(c, http.StatusOK, "settings", v)
}
