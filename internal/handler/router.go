package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-portal-api/internal/middleware"
	"github.com/noah-isme/campus-portal-api/internal/models"
	"github.com/noah-isme/campus-portal-api/internal/service"
)

// Routes groups everything RegisterRoutes mounts.
type Routes struct {
	Tokens     middleware.TokenValidator
	Audit      middleware.AuditRecorder
	RateLimit  *service.RateLimitService
	Auth       *AuthHandler
	Users      *UserHandler
	Attendance *AttendanceHandler
	Forums     *ForumHandler
	Grades     *GradeHandler
	Meetings   *MeetingHandler
	Events     *EventHandler
}

// RegisterRoutes mounts the portal API on group.
func RegisterRoutes(group *gin.RouterGroup, rt Routes) {
	requireAuth := middleware.JWT(rt.Tokens)
	facultyOnly := middleware.FacultyOnly()

	auth := group.Group("/auth")
	{
		limited := auth.Group("", middleware.RateLimit(rt.RateLimit, "auth"))
		limited.POST("/signup", rt.Auth.Signup)
		limited.POST("/login", rt.Auth.Login)
		limited.POST("/refresh", rt.Auth.Refresh)

		auth.POST("/logout", requireAuth, rt.Auth.Logout)
		auth.POST("/change-password", requireAuth, rt.Auth.ChangePassword)
		auth.GET("/me", requireAuth, rt.Auth.Me)
	}

	api := group.Group("", requireAuth)

	api.GET("/users/me", rt.Users.Profile)
	api.PATCH("/users/me", rt.Users.UpdateProfile)
	api.GET("/faculty", rt.Users.Faculty)
	api.GET("/students", facultyOnly, rt.Users.Students)

	api.PUT("/attendance", facultyOnly, middleware.Audit(rt.Audit, models.AuditActionAttendanceMark, "attendance"), rt.Attendance.Mark)
	api.GET("/attendance", rt.Attendance.List)
	api.GET("/attendance/summary", rt.Attendance.Summary)
	api.GET("/attendance/export", rt.Attendance.Export)

	forums := api.Group("/forums")
	{
		forums.GET("", rt.Forums.List)
		forums.GET("/archived", rt.Forums.Archived)
		forums.POST("", middleware.Audit(rt.Audit, models.AuditActionForumCreate, "forum"), rt.Forums.Create)
		forums.GET("/:id", rt.Forums.Get)
		forums.POST("/:id/archive", rt.Forums.Archive)
		forums.POST("/:id/unarchive", rt.Forums.Unarchive)
		forums.GET("/:id/comments", rt.Forums.Comments)
		forums.POST("/:id/comments", middleware.Audit(rt.Audit, models.AuditActionCommentPost, "forum_comment"), rt.Forums.PostComment)
	}

	api.PUT("/grades", facultyOnly, rt.Grades.Submit)
	api.GET("/grades", rt.Grades.List)
	api.GET("/courses", rt.Grades.Courses)

	meetings := api.Group("/meetings")
	{
		meetings.POST("", middleware.Audit(rt.Audit, models.AuditActionMeetingCreate, "meeting"), rt.Meetings.Create)
		meetings.GET("", rt.Meetings.List)
		meetings.DELETE("/:id", rt.Meetings.Delete)
	}

	api.GET("/events", rt.Events.List)
	api.POST("/events", facultyOnly, middleware.Audit(rt.Audit, models.AuditActionEventCreate, "event"), rt.Events.Create)
}
