package narration

import "fmt"

// DeriveKey builds the deterministic cache key for one narration. The "|"
// delimiter cannot appear in the validated components, so distinct inputs
// cannot collide on the same key.
func DeriveKey(in *Input) string {
	return fmt.Sprintf("%s|%s|%d|%s", in.VoiceID, in.StoryID, in.PageIndex, in.Lang)
}

// StoragePath is where the synthesized audio lives in the artifact store,
// namespaced by subject, voice, story and page.
func StoragePath(subject string, in *Input) string {
	return fmt.Sprintf("users/%s/voice_cache/%s/%s/page_%d_%s.mp3",
		subject, in.VoiceID, in.StoryID, in.PageIndex, in.Lang)
}
