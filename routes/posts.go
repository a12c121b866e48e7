package routes

import (
	"blogpin-backend/handlers/posts"
	"blogpin-backend/handlers/posts/comment"
	"blogpin-backend/middleware"

	"github.com/gin-gonic/gin"
)

func PostsRoutes(r *gin.Engine) {
	// Public routes
	r.GET("/posts", posts.GetAllPosts)
	r.GET("/posts/:id", posts.GetPostByID)
	r.GET("/posts/:id/comments", comment.GetComments)

	// Protected routes
	postsRoutes := r.Group("/posts")
	postsRoutes.Use(middleware.JWTAuth())
	{
		postsRoutes.POST("", posts.CreatePost)
		postsRoutes.PUT("/:id", posts.UpdatePost)
		postsRoutes.DELETE("/:id", posts.DeletePost)
		postsRoutes.POST("/:id/image", posts.UploadPostImage)

		postsRoutes.POST("/:id/comments", comment.CreateComment)
		postsRoutes.DELETE("/:id/comments/:commentId", comment.DeleteComment)
	}
}
