package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookclub/internal/auth"
	"github.com/mrlokans/bookclub/internal/catalog"
	"github.com/mrlokans/bookclub/internal/entities"
)

// ProfileController shows and edits the signed-in reader's profile.
type ProfileController struct {
	*pageRenderer
	session SessionStore
	catalog CatalogReader
}

func NewProfileController(r *pageRenderer, session SessionStore, catalog CatalogReader) *ProfileController {
	return &ProfileController{
		pageRenderer: r,
		session:      session,
		catalog:      catalog,
	}
}

// ProfilePage lists the reader's reviews across the loaded catalog.
// GET /profile
func (pc *ProfileController) ProfilePage(c *gin.Context) {
	user := auth.GetUser(c)
	reviews := pc.catalog.UserReviews(user.ID)

	data := gin.H{
		"Title":         "Profile",
		"Profile":       user,
		"Reviews":       reviews,
		"AverageRating": catalog.AverageRating(reviews),
		"Editing":       c.Query("edit") == "1",
	}
	if expiry, ok := pc.session.TokenExpiry(); ok {
		data["TokenExpiry"] = expiry
	}
	pc.render(c, http.StatusOK, "profile", data)
}

// UpdateProfile saves name and bio. A blank name is left unchanged.
// POST /profile
func (pc *ProfileController) UpdateProfile(c *gin.Context) {
	var update entities.ProfileUpdate
	if name := strings.TrimSpace(c.PostForm("name")); name != "" {
		update.Name = &name
	}
	if _, ok := c.GetPostForm("bio"); ok {
		bio := strings.TrimSpace(c.PostForm("bio"))
		update.Bio = &bio
	}

	if update.IsEmpty() {
		redirect(c, "/profile")
		return
	}

	if _, err := pc.session.UpdateProfile(c.Request.Context(), update); err != nil {
		pc.flash(c, auth.FlashError, userMessage(err, auth.MsgLoginRequired))
		redirect(c, "/profile?edit=1")
		return
	}

	pc.flash(c, auth.FlashSuccess, MsgProfileUpdated)
	redirect(c, "/profile")
}
