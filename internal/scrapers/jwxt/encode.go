package jwxt

import "strings"

// Challenge is the per-login pair handed out by the portal: scode is a pool
// of filler characters, sxh a string of digits saying how many of them follow
// each character of the joined credentials.
type Challenge struct {
	Scode string
	Sxh   string
}

// ParseChallenge splits a `<scode>#<sxh>` body at the first '#'.
func ParseChallenge(body string) (Challenge, error) {
	body = strings.TrimSpace(body)
	scode, sxh, ok := strings.Cut(body, "#")
	if !ok {
		return Challenge{}, ChallengeFormatError{Body: body}
	}
	return Challenge{Scode: scode, Sxh: sxh}, nil
}

const credentialSeparator = "%%%"

// Encode interleaves `username%%%password` with the challenge's filler: the
// i-th character is followed by the next n characters of scode, where n is
// the digit at sxh[i] (0 when sxh is shorter or not a digit). Running out of
// filler just appends whatever is left.
func Encode(username, password string, challenge Challenge) string {
	code := []rune(username + credentialSeparator + password)
	scode := []rune(challenge.Scode)
	sxh := []rune(challenge.Sxh)

	var out strings.Builder
	for i, r := range code {
		out.WriteRune(r)

		n := 0
		if i < len(sxh) && sxh[i] >= '0' && sxh[i] <= '9' {
			n = int(sxh[i] - '0')
		}
		if n > len(scode) {
			n = len(scode)
		}
		out.WriteString(string(scode[:n]))
		scode = scode[n:]
	}
	return out.String()
}
