package service

// CreatePostRequest holds parameters for creating a post.
type CreatePostRequest struct {
	Title string
	Body  string
}

// LikeResult is returned after toggling a like.
type LikeResult struct {
	Liked     bool  `json:"liked"`
	LikeCount int64 `json:"like_count"`
}

// SignUpRequest holds parameters for registering an account.
type SignUpRequest struct {
	Username string
	Email    string
	Password string
}
