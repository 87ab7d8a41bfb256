package model

// Action is a reaction a user applies to an article.
type Action string

const (
	Like    Action = "like"
	Dislike Action = "dislike"
	Block   Action = "block"
)

func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case Like, Dislike, Block:
		return a, nil
	}

	return "", InvalidArgument(`invalid action, use "like", "dislike" or "block"`)
}

// Vote is the stored value of a like/dislike reaction.
func (a Action) Vote() int {
	switch a {
	case Like:
		return 1
	case Dislike:
		return -1
	}

	return 0
}
