package content

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type blogFrontMatter struct {
	Title     string   `yaml:"title" json:"title"`
	Summary   string   `yaml:"summary" json:"summary"`
	Author    string   `yaml:"author" json:"author"`
	Image     string   `yaml:"image" json:"image"`
	Tags      []string `yaml:"tags" json:"tags"`
	Published string   `yaml:"published" json:"published"`
	Draft     bool     `yaml:"draft" json:"draft"`
}

type remotePost struct {
	blogFrontMatter
	Slug string `json:"slug"`
	Body string `json:"body"`
}

// BlogPosts returns published posts, newest first.
func (c *Client) BlogPosts(ctx context.Context, lang string) ([]BlogPost, error) {
	key := collectionBlog + "|" + lang
	if v, ok := c.cached(key); ok {
		return v.([]BlogPost), nil
	}
	ctx, span := tracer.Start(ctx, "content.blog")
	defer span.End()

	for _, candidate := range langOrder(lang) {
		posts, err := c.fetchBlog(ctx, candidate)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		sort.SliceStable(posts, func(i, j int) bool { return posts[i].Published.After(posts[j].Published) })
		c.store(key, posts)
		return posts, nil
	}
	return nil, fmt.Errorf("%s/blog: %w", lang, ErrNotFound)
}

// BlogPost returns the post with the given slug.
func (c *Client) BlogPost(ctx context.Context, lang, slug string) (BlogPost, error) {
	posts, err := c.BlogPosts(ctx, lang)
	if err != nil {
		return BlogPost{}, err
	}
	for _, p := range posts {
		if p.Slug == slug {
			return p, nil
		}
	}
	return BlogPost{}, fmt.Errorf("blog post %q: %w", slug, ErrNotFound)
}

func (c *Client) fetchBlog(ctx context.Context, lang string) ([]BlogPost, error) {
	if c.baseURL != "" {
		var payload struct {
			Items []remotePost `json:"items"`
		}
		err := c.fetchRemote(ctx, []string{collectionBlog}, lang, &payload)
		if err == nil {
			posts := make([]BlogPost, 0, len(payload.Items))
			for _, rp := range payload.Items {
				post, ok, err := buildPost(rp.Slug, lang, rp.blogFrontMatter, rp.Body)
				if err != nil {
					return nil, err
				}
				if ok {
					posts = append(posts, post)
				}
			}
			return posts, nil
		}
		if !errors.Is(err, ErrNotFound) {
			c.logger.Warn("remote blog failed, using local files", zap.String("lang", lang), zap.Error(err))
		}
	}
	return readBlogDir(c.files, lang)
}

func readBlogDir(files fs.FS, lang string) ([]BlogPost, error) {
	if files == nil {
		return nil, ErrNotFound
	}
	dir := lang + "/" + collectionBlog
	entries, err := fs.ReadDir(files, dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("content: read %s: %w", dir, err)
	}
	var posts []BlogPost
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".md" {
			continue
		}
		file := dir + "/" + e.Name()
		raw, err := fs.ReadFile(files, file)
		if err != nil {
			return nil, fmt.Errorf("content: read %s: %w", file, err)
		}
		fm, body := splitFrontMatter(string(raw))
		var front blogFrontMatter
		if strings.TrimSpace(fm) != "" {
			if err := yaml.Unmarshal([]byte(fm), &front); err != nil {
				return nil, fmt.Errorf("content: parse front matter %s: %w", file, err)
			}
		}
		post, ok, err := buildPost(strings.TrimSuffix(e.Name(), ".md"), lang, front, body)
		if err != nil {
			return nil, fmt.Errorf("content: %s: %w", file, err)
		}
		if ok {
			posts = append(posts, post)
		}
	}
	return posts, nil
}

// buildPost renders a post; drafts report ok=false.
func buildPost(slug, lang string, front blogFrontMatter, body string) (BlogPost, bool, error) {
	if front.Draft {
		return BlogPost{}, false, nil
	}
	html, err := RenderMarkdown(body)
	if err != nil {
		return BlogPost{}, false, err
	}
	title := strings.TrimSpace(front.Title)
	if title == "" {
		title = slug
	}
	return BlogPost{
		Slug:      slug,
		Lang:      lang,
		Title:     title,
		Summary:   strings.TrimSpace(front.Summary),
		Author:    strings.TrimSpace(front.Author),
		Image:     strings.TrimSpace(front.Image),
		Tags:      front.Tags,
		Published: parseDate(front.Published),
		Body:      html,
	}, true, nil
}

func parseDate(v string) time.Time {
	v = strings.TrimSpace(v)
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}
	return time.Time{}
}
