// Package protect flags filesystem paths that hold credentials, keys or the
// operating system itself, so destructive operations on them always need a
// human to say yes.
package protect

// DefaultPatterns are glob patterns over slash-separated absolute paths.
// "**" matches any number of segments.
var DefaultPatterns = []string{
	"**/.ssh/**",
	"**/.gnupg/**",
	"**/.aws/**",
	"**/.kube/**",
	"**/.docker/**",
	"**/.password-store/**",
	"**/.git",
	"**/Library/Keychains/**",
	"**/secrets/**",
	"**/credentials/**",
	"**/certs/**",
	"/etc/**",
	"/usr/**",
	"/bin/**",
	"/sbin/**",
	"/var/**",
	"/System/**",
	"/Applications/**",
}

// DefaultKeywords are substrings that mark a file or directory name as sensitive.
var DefaultKeywords = []string{
	"secret",
	"password",
	"passwd",
	"credential",
	"keychain",
	"wallet",
	"id_rsa",
	"id_ed25519",
	"private",
}

// DefaultFileTypes are extensions of key and credential files.
var DefaultFileTypes = []string{
	".pem",
	".key",
	".env",
	".p12",
	".pfx",
	".jks",
	".keystore",
	".kdbx",
	".gpg",
}
