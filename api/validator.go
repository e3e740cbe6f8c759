package main

import (
	"regexp"
	"time"
	"unicode/utf8"
)

var usernameRegexp = regexp.MustCompile(`^\S+$`)

type validator struct {
	errors map[string]string
}

func newValidator() *validator {
	return &validator{
		errors: make(map[string]string),
	}
}

func (v *validator) hasErrors() bool {
	return len(v.errors) != 0
}

func (v *validator) checkCond(cond bool, key, msg string) {
	if cond {
		return
	}
	if _, ok := v.errors[key]; !ok {
		v.errors[key] = msg
	}
}

func (v *validator) checkUsername(username string) {
	v.checkCond(username != "", "username", "must be provided")
	v.checkCond(utf8.RuneCountInString(username) <= 64, "username", "must be atmost 64 characters")
	v.checkCond(usernameRegexp.MatchString(username), "username", "must not contain whitespace")
}

func (v *validator) checkPassword(password string) {
	v.checkCond(password != "", "password", "must be provided")
	v.checkCond(len(password) >= 8, "password", "must be atleast 8 characters long")
	v.checkCond(len(password) <= 72, "password", "must be atmost 72 characters long")
}

func (v *validator) checkTask(f taskForm) {
	v.checkCond(f.Title != "", "title", "must be provided")
	v.checkCond(utf8.RuneCountInString(f.Title) <= 255, "title", "must be atmost 255 characters")
	v.checkCond(utf8.RuneCountInString(f.Description) <= 4096, "description", "must be atmost 4096 characters")
	if f.DueDate != "" {
		_, err := time.Parse(dueDateLayout, f.DueDate)
		v.checkCond(err == nil, "due_date", "must be a date in YYYY-MM-DD format")
	}
}
