package dto

import (
	"time"

	"esocial/internal/app/pagination"
	domainpost "esocial/internal/domain/post"
	domainuser "esocial/internal/domain/user"
)

type Post struct {
	ID               string       `json:"id"`
	AuthorID         string       `json:"author_id"`
	Content          string       `json:"content"`
	Images           []PostImage  `json:"images,omitempty"`
	Attachments      []Attachment `json:"attachments,omitempty"`
	Links            []PostLink   `json:"links,omitempty"`
	Type             string       `json:"type"`
	LikesCount       int          `json:"likes_count"`
	RepostsCount     int          `json:"reposts_count"`
	CommentsCount    int          `json:"comments_count"`
	Liked            bool         `json:"liked"`
	Reposted         bool         `json:"reposted"`
	IsMentorshipPost bool         `json:"is_mentorship_post"`
	MentorshipType   string       `json:"mentorship_type,omitempty"`
	Subject          string       `json:"subject,omitempty"`
	GroupID          string       `json:"group_id,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

type PostImage struct {
	URL     string `json:"url"`
	Caption string `json:"caption,omitempty"`
}

type PostLink struct {
	URL         string `json:"url"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
}

type PostList struct {
	Posts      []Post              `json:"posts"`
	Pagination pagination.PageInfo `json:"pagination"`
}

type Comment struct {
	ID           string    `json:"id"`
	PostID       string    `json:"post_id"`
	AuthorID     string    `json:"author_id"`
	Content      string    `json:"content"`
	ParentID     string    `json:"parent_id,omitempty"`
	LikesCount   int       `json:"likes_count"`
	Liked        bool      `json:"liked"`
	RepliesCount int       `json:"replies_count"`
	Replies      []Comment `json:"replies,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type CommentList struct {
	Comments   []Comment           `json:"comments"`
	Pagination pagination.PageInfo `json:"pagination"`
}

type ToggleResult struct {
	Active bool `json:"active"`
	Count  int  `json:"count"`
}

// MapPost renders a post for the given viewer; viewer decides the liked and
// reposted flags.
func MapPost(p *domainpost.Post, viewer domainuser.ID) Post {
	if p == nil {
		return Post{}
	}
	post := Post{
		ID:               string(p.ID),
		AuthorID:         string(p.AuthorID),
		Content:          p.Content,
		Type:             string(p.Type),
		LikesCount:       len(p.Likes),
		RepostsCount:     len(p.Reposts),
		CommentsCount:    p.CommentsCount,
		Liked:            p.LikedBy(viewer),
		Reposted:         p.RepostedBy(viewer),
		IsMentorshipPost: p.IsMentorshipPost,
		MentorshipType:   string(p.MentorshipType),
		Subject:          p.Subject,
		GroupID:          p.GroupID,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
	for _, img := range p.Images {
		post.Images = append(post.Images, PostImage{URL: img.URL, Caption: img.Caption})
	}
	for _, a := range p.Attachments {
		post.Attachments = append(post.Attachments, Attachment{Name: a.Name, URL: a.URL, ContentType: a.ContentType, Size: a.Size})
	}
	for _, l := range p.Links {
		post.Links = append(post.Links, PostLink{URL: l.URL, Title: l.Title, Description: l.Description, Image: l.Image})
	}
	return post
}

func NewPostList(posts []domainpost.Post, viewer domainuser.ID, info pagination.PageInfo) PostList {
	out := PostList{Posts: make([]Post, 0, len(posts)), Pagination: info}
	for i := range posts {
		out.Posts = append(out.Posts, MapPost(&posts[i], viewer))
	}
	return out
}

func MapComment(c *domainpost.Comment, viewer domainuser.ID) Comment {
	if c == nil {
		return Comment{}
	}
	return Comment{
		ID:           string(c.ID),
		PostID:       string(c.PostID),
		AuthorID:     string(c.AuthorID),
		Content:      c.Content,
		ParentID:     string(c.ParentID),
		LikesCount:   len(c.Likes),
		Liked:        c.LikedBy(viewer),
		RepliesCount: c.RepliesCount,
		CreatedAt:    c.CreatedAt,
	}
}
