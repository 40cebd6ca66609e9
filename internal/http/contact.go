package http

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/mrlokans/bookclub/internal/auth"
)

// MsgContactSent is flashed after the contact form is accepted.
const MsgContactSent = "Message sent. We will get back to you within 24 hours."

type contactCategory struct {
	Value string
	Label string
}

var contactCategories = []contactCategory{
	{"general", "General inquiry"},
	{"support", "Technical support"},
	{"partnership", "Partnership"},
	{"author", "Author relations"},
}

type contactForm struct {
	Name     string `form:"name" binding:"required"`
	Email    string `form:"email" binding:"required,email"`
	Subject  string `form:"subject" binding:"required"`
	Message  string `form:"message" binding:"required"`
	Category string `form:"category" binding:"omitempty,oneof=general support partnership author"`
}

func (f *contactForm) trim() {
	f.Name = strings.TrimSpace(f.Name)
	f.Email = strings.TrimSpace(f.Email)
	f.Subject = strings.TrimSpace(f.Subject)
	f.Message = strings.TrimSpace(f.Message)
}

// ContactController serves the contact page. Messages are only logged;
// there is no backend endpoint for them.
type ContactController struct {
	*pageRenderer
}

func NewContactController(r *pageRenderer) *ContactController {
	return &ContactController{pageRenderer: r}
}

// ContactPage GET /contact
func (cc *ContactController) ContactPage(c *gin.Context) {
	cc.render(c, http.StatusOK, "contact", gin.H{
		"Title":      "Contact",
		"Categories": contactCategories,
		"Form":       contactForm{Category: "general"},
	})
}

// SendMessage POST /contact
func (cc *ContactController) SendMessage(c *gin.Context) {
	var form contactForm
	err := c.ShouldBindWith(&form, binding.Form)
	if err == nil {
		form.trim()
		err = binding.Validator.ValidateStruct(&form)
	}
	if err != nil {
		cc.render(c, http.StatusOK, "contact", gin.H{
			"Title":      "Contact",
			"Categories": contactCategories,
			"Form":       form,
			"Error":      contactError(err),
		})
		return
	}

	log.Printf("Contact: %s message from %s <%s>: %s", form.Category, form.Name, form.Email, form.Subject)
	cc.flash(c, auth.FlashSuccess, MsgContactSent)
	redirect(c, "/contact")
}

func contactError(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return "Please check the form and try again."
	}
	fe := fieldErrs[0]
	switch {
	case fe.Field() == "Email" && fe.Tag() == "email":
		return "Please enter a valid email address."
	case fe.Field() == "Category":
		return "Please pick one of the listed topics."
	}
	return "Please fill in the " + strings.ToLower(fe.Field()) + " field."
}
