package deepgram

// Aura voice model identifiers. The list is not exhaustive; any model name
// Deepgram accepts can be passed through [synthesis.WithVoice].
const (
	VoiceThalia    = "aura-2-thalia-en"
	VoiceAndromeda = "aura-2-andromeda-en"
	VoiceHelena    = "aura-2-helena-en"
	VoiceApollo    = "aura-2-apollo-en"
	VoiceArcas     = "aura-2-arcas-en"
	VoiceAsteria   = "aura-asteria-en"
	VoiceLuna      = "aura-luna-en"
	VoiceOrion     = "aura-orion-en"
)

const DefaultVoice = VoiceThalia

// AvailableVoices returns the known voice identifiers, primarily for
// configuration validation and pickers.
func AvailableVoices() []string {
	return []string{
		VoiceThalia,
		VoiceAndromeda,
		VoiceHelena,
		VoiceApollo,
		VoiceArcas,
		VoiceAsteria,
		VoiceLuna,
		VoiceOrion,
	}
}
