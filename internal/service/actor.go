package service

import (
	"video_course_backend/internal/util"
)

// Actor 当前请求的调用者，由控制器从 JWT 中构造后显式传入各服务方法
type Actor struct {
	UserID  string
	IsAdmin bool
}

func ActorFromClaims(claims *util.Claims) Actor {
	if claims == nil {
		return Actor{}
	}
	return Actor{UserID: claims.UserID, IsAdmin: claims.IsAdmin}
}

func (a Actor) Authenticated() bool {
	return a.UserID != ""
}

func (a Actor) requireUser() error {
	if !a.Authenticated() {
		return util.ErrUnauthenticated
	}
	return nil
}

func (a Actor) requireAdmin() error {
	if err := a.requireUser(); err != nil {
		return err
	}
	if !a.IsAdmin {
		return util.ErrPermissionDenied
	}
	return nil
}
