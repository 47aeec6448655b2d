// Package profileimage uploads the signed-in user's profile image and
// announces the change on notify.TopicUserProfileImageDidChange.
package profileimage
