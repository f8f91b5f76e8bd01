package dispatch

import (
	"context"
	"fmt"
	"log"

	"github.com/pressroomhq/social-scheduler/internal/models"
)

// Stub dispatchers for networks whose API credentials/app review are still
// being set up. They fail loudly so a post queued to them lands FAILED in the
// queue instead of silently disappearing.

type XDispatcher struct{}

func (XDispatcher) Platform() models.Platform { return models.PlatformX }
func (XDispatcher) Send(ctx context.Context, account models.SocialAccount, post models.SocialPost) (string, error) {
	log.Printf("[Dispatch] x not implemented yet accountId=%s postId=%s", account.ID, post.ID)
	return "", fmt.Errorf("x dispatch not implemented")
}

type FacebookDispatcher struct{}

func (FacebookDispatcher) Platform() models.Platform { return models.PlatformFacebook }
func (FacebookDispatcher) Send(ctx context.Context, account models.SocialAccount, post models.SocialPost) (string, error) {
	log.Printf("[Dispatch] facebook not implemented yet accountId=%s postId=%s", account.ID, post.ID)
	return "", fmt.Errorf("facebook dispatch not implemented")
}

type TruthSocialDispatcher struct{}

func (TruthSocialDispatcher) Platform() models.Platform { return models.PlatformTruthSocial }
func (TruthSocialDispatcher) Send(ctx context.Context, account models.SocialAccount, post models.SocialPost) (string, error) {
	log.Printf("[Dispatch] truthsocial not implemented yet accountId=%s postId=%s", account.ID, post.ID)
	return "", fmt.Errorf("truthsocial dispatch not implemented")
}

type InstagramDispatcher struct{}

func (InstagramDispatcher) Platform() models.Platform { return models.PlatformInstagram }
func (InstagramDispatcher) Send(ctx context.Context, account models.SocialAccount, post models.SocialPost) (string, error) {
	log.Printf("[Dispatch] instagram not implemented yet accountId=%s postId=%s", account.ID, post.ID)
	return "", fmt.Errorf("instagram dispatch not implemented")
}

// Ensure they satisfy the interface.
var (
	_ Dispatcher = XDispatcher{}
	_ Dispatcher = FacebookDispatcher{}
	_ Dispatcher = TruthSocialDispatcher{}
	_ Dispatcher = InstagramDispatcher{}
)
