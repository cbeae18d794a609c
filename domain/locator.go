package domain

// FindScene returns the scene with the given id and its position in the story.
func (s *Story) FindScene(sceneID string) (*Scene, int, error) {
	for i := range s.Scenes {
		if s.Scenes[i].ID == sceneID {
			return &s.Scenes[i], i, nil
		}
	}
	return nil, -1, NotFoundf("scene %s in story %s", sceneID, s.ID)
}

// FindAudioUnit returns the unit with the given id and its position in the scene.
func (s *Scene) FindAudioUnit(audioID string) (*AudioUnit, int, error) {
	for i := range s.AudioUnits {
		if s.AudioUnits[i].ID == audioID {
			return &s.AudioUnits[i], i, nil
		}
	}
	return nil, -1, NotFoundf("audio unit %s in scene %s", audioID, s.ID)
}

// narrationSpeaker is the speaker label scripts use for narrator lines.
const narrationSpeaker = "narration"

// VoiceCodeFor picks the synthesis voice for a unit. Narration lines use the
// story's narration voice; a line spoken by a known character uses that
// character's voice. Anything else falls back to the narration voice.
func (s *Story) VoiceCodeFor(unit AudioUnit) string {
	if unit.Type == NarrationAudioType || unit.Character == "" || unit.Character == narrationSpeaker {
		return s.NarrationVoiceCode
	}
	for _, c := range s.Characters {
		if c.Name == unit.Character && c.VoiceCode != "" {
			return c.VoiceCode
		}
	}
	return s.NarrationVoiceCode
}

func (s *Story) SceneIDs() []string {
	ids := make([]string, 0, len(s.Scenes))
	for _, scene := range s.Scenes {
		ids = append(ids, scene.ID)
	}
	return ids
}

// Validate checks the scene is ready for assembly.
func (s Scene) Validate() error {
	if s.ImageURL == "" {
		return &IncompleteSceneError{SceneID: s.ID, Reason: "missing image url"}
	}
	if len(s.AudioUnits) == 0 {
		return &IncompleteSceneError{SceneID: s.ID, Reason: "no audio units"}
	}
	for _, unit := range s.AudioUnits {
		if unit.AudioURL == "" {
			return &IncompleteSceneError{SceneID: s.ID, Reason: "missing audio url for unit " + unit.ID}
		}
	}
	return nil
}

func (s Scene) AudioURLs() []string {
	urls := make([]string, 0, len(s.AudioUnits))
	for _, unit := range s.AudioUnits {
		urls = append(urls, unit.AudioURL)
	}
	return urls
}
