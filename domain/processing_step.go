package domain

type ProcessingStep string

// StepNone is returned when no step is recorded or the record expired.
const StepNone ProcessingStep = ""

const (
	StepScriptProcessing     ProcessingStep = "SCRIPT_PROCESSING"
	StepVoiceGenerating      ProcessingStep = "VOICE_GENERATING"
	StepImageGenerating      ProcessingStep = "IMAGE_GENERATING"
	StepVoiceCompleted       ProcessingStep = "VOICE_COMPLETED"
	StepImageCompleted       ProcessingStep = "IMAGE_COMPLETED"
	StepVideoRendering       ProcessingStep = "VIDEO_RENDERING"
	StepVideoRenderCompleted ProcessingStep = "VIDEO_RENDER_COMPLETED"
	StepVideoUploading       ProcessingStep = "VIDEO_UPLOADING"
)

var processingSteps = []ProcessingStep{
	StepScriptProcessing,
	StepVoiceGenerating,
	StepImageGenerating,
	StepVoiceCompleted,
	StepImageCompleted,
	StepVideoRendering,
	StepVideoRenderCompleted,
	StepVideoUploading,
}

var stepDescriptions = map[ProcessingStep]string{
	StepScriptProcessing:     "processing script",
	StepVoiceGenerating:      "generating voices",
	StepImageGenerating:      "generating images",
	StepVoiceCompleted:       "voices generated",
	StepImageCompleted:       "images generated",
	StepVideoRendering:       "rendering video",
	StepVideoRenderCompleted: "video rendered",
	StepVideoUploading:       "uploading video",
}

func (s ProcessingStep) Description() string {
	return stepDescriptions[s]
}

// Ordinal is the position of the step in the progress sequence, -1 for unknown steps.
func (s ProcessingStep) Ordinal() int {
	for i, step := range processingSteps {
		if step == s {
			return i
		}
	}
	return -1
}

func ParseProcessingStep(value string) (ProcessingStep, bool) {
	step := ProcessingStep(value)
	if step.Ordinal() < 0 {
		return StepNone, false
	}
	return step, true
}
