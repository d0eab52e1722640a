package transfer

type TweetReply struct {
	InReplyToTweetID string `json:"in_reply_to_tweet_id"`
}

type TweetMedia struct {
	MediaIDs []string `json:"media_ids"`
}

type CreateTweetRequest struct {
	Text  string      `json:"text"`
	Reply *TweetReply `json:"reply,omitempty"`
	Media *TweetMedia `json:"media,omitempty"`
}

// TwitterUser is the profile returned by /2/users/me.
type TwitterUser struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Username        string `json:"username"`
	ProfileImageURL string `json:"profile_image_url"`
}
