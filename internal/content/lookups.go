package content

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Partners returns all partners.
func (c *Client) Partners(ctx context.Context, lang string) ([]Partner, error) {
	return loadCollection[Partner](ctx, c, CollectionPartners, lang)
}

// Team returns the team members in file order.
func (c *Client) Team(ctx context.Context, lang string) ([]TeamMember, error) {
	return loadCollection[TeamMember](ctx, c, CollectionTeam, lang)
}

// Events returns events sorted by start. With upcoming set, events that
// ended before now are dropped.
func (c *Client) Events(ctx context.Context, lang string, upcoming bool) ([]Event, error) {
	all, err := loadCollection[Event](ctx, c, CollectionEvents, lang)
	if err != nil {
		return nil, err
	}
	now := c.now()
	out := make([]Event, 0, len(all))
	for _, e := range all {
		if upcoming && !e.Upcoming(now) {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

// SuccessStories returns the stories with rendered bodies.
func (c *Client) SuccessStories(ctx context.Context, lang string) ([]SuccessStory, error) {
	items, err := loadCollection[SuccessStory](ctx, c, CollectionSuccessStories, lang)
	if err != nil {
		return nil, err
	}
	out := make([]SuccessStory, len(items))
	for i, s := range items {
		body, err := RenderMarkdown(s.Markdown)
		if err != nil {
			return nil, fmt.Errorf("content: render story %s: %w", s.Slug, err)
		}
		s.Body = body
		out[i] = s
	}
	return out, nil
}

// SuccessStory returns the story with the given company slug.
func (c *Client) SuccessStory(ctx context.Context, lang, slug string) (SuccessStory, error) {
	items, err := c.SuccessStories(ctx, lang)
	if err != nil {
		return SuccessStory{}, err
	}
	for _, s := range items {
		if strings.EqualFold(s.Slug, slug) {
			return s, nil
		}
	}
	return SuccessStory{}, fmt.Errorf("success story %q: %w", slug, ErrNotFound)
}

// UseCases returns the use cases with rendered bodies.
func (c *Client) UseCases(ctx context.Context, lang string) ([]UseCase, error) {
	items, err := loadCollection[UseCase](ctx, c, CollectionUseCases, lang)
	if err != nil {
		return nil, err
	}
	out := make([]UseCase, len(items))
	for i, u := range items {
		body, err := RenderMarkdown(u.Markdown)
		if err != nil {
			return nil, fmt.Errorf("content: render use case %s: %w", u.Slug, err)
		}
		u.Body = body
		out[i] = u
	}
	return out, nil
}

// UseCase returns the use case with the given slug.
func (c *Client) UseCase(ctx context.Context, lang, slug string) (UseCase, error) {
	items, err := c.UseCases(ctx, lang)
	if err != nil {
		return UseCase{}, err
	}
	for _, u := range items {
		if strings.EqualFold(u.Slug, slug) {
			return u, nil
		}
	}
	return UseCase{}, fmt.Errorf("use case %q: %w", slug, ErrNotFound)
}

// Downloads returns all downloads.
func (c *Client) Downloads(ctx context.Context, lang string) ([]Download, error) {
	return loadCollection[Download](ctx, c, CollectionDownloads, lang)
}

// Download returns the download with the given id.
func (c *Client) Download(ctx context.Context, lang, id string) (Download, error) {
	items, err := c.Downloads(ctx, lang)
	if err != nil {
		return Download{}, err
	}
	for _, d := range items {
		if d.ID == id {
			return d, nil
		}
	}
	return Download{}, fmt.Errorf("download %q: %w", id, ErrNotFound)
}

// Pricing returns the pricing plans in display order.
func (c *Client) Pricing(ctx context.Context, lang string) ([]PricingPlan, error) {
	return loadCollection[PricingPlan](ctx, c, CollectionPricing, lang)
}
