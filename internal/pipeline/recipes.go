package pipeline

import (
	"fmt"

	"github.com/prezentinnynizwszystkie-ctrl/render/internal/services"
)

// Both chapters share one normalization so background footage and the
// looped photo concatenate cleanly.
const normalizeChain = "scale=1920:1080,setsar=1,fps=25"

// Chapter1Graph builds the chapter 1 recipe: the background video followed
// by the looping user photo, trimmed to the narration length, over a
// narration+music mix. Narration is the authoritative timeline — video is
// cropped and music cut to fit it, never the other way around.
//
// narrationSec must come from a probe of the narration file; the graph
// itself never measures anything.
func Chapter1Graph(bgVideo, photo, narration, music string, narrationSec float64) services.Graph {
	return services.Graph{
		Inputs: []services.Input{
			{Path: bgVideo},
			{Path: photo, Options: []string{"-loop", "1"}},
			{Path: narration},
			{Path: music},
		},
		Filters: []services.FilterNode{
			{Inputs: []string{"0:v"}, Chain: normalizeChain, Outputs: []string{"bg"}},
			{Inputs: []string{"1:v"}, Chain: normalizeChain, Outputs: []string{"img"}},
			{Inputs: []string{"bg", "img"}, Chain: "concat=n=2:v=1:a=0", Outputs: []string{"cat"}},
			{Inputs: []string{"cat"}, Chain: fmt.Sprintf("trim=duration=%.3f,setpts=PTS-STARTPTS", narrationSec), Outputs: []string{"vout"}},
			// Levels pass through unattenuated; shortest input ends the mix
			{Inputs: []string{"2:a", "3:a"}, Chain: "amix=inputs=2:duration=shortest", Outputs: []string{"aout"}},
		},
		MapVideo: "vout",
		MapAudio: "aout",
	}
}

// Chapter2Graph builds the chapter 2 recipe: background video trimmed to
// the narration length over the same narration+music mix. No photo loop —
// the chapter 2 background always outlasts the narration.
func Chapter2Graph(bgVideo, narration, music string, narrationSec float64) services.Graph {
	return services.Graph{
		Inputs: []services.Input{
			{Path: bgVideo},
			{Path: narration},
			{Path: music},
		},
		Filters: []services.FilterNode{
			{Inputs: []string{"0:v"}, Chain: fmt.Sprintf("trim=duration=%.3f,setpts=PTS-STARTPTS", narrationSec), Outputs: []string{"vout"}},
			{Inputs: []string{"1:a", "2:a"}, Chain: "amix=inputs=2:duration=shortest", Outputs: []string{"aout"}},
		},
		MapVideo: "vout",
		MapAudio: "aout",
	}
}
