package cmd

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/iksnae/chatvault/internal"
)

var upgradeCmd = &cobra.Command{
	Use:   "upgrade",
	Short: "Upgrade chatvault to the latest version",
	Long: `Upgrade chatvault by pulling the latest changes from the repository
and reinstalling the binary.

This command will:
1. Find the repository (if installed from source)
2. Pull latest changes from git
3. Rebuild the binary
4. Reinstall to the current installation location`,
	RunE: func(cmd *cobra.Command, args []string) error {
		currentBinary, err := os.Executable()
		if err != nil {
			return fmt.Errorf("failed to get current binary path: %w", err)
		}
		if realPath, err := filepath.EvalSymlinks(currentBinary); err == nil {
			currentBinary = realPath
		}
		internal.LogInfo("Current binary location: %s", currentBinary)

		repoPath, err := findRepository()
		if err != nil {
			return fmt.Errorf("failed to find repository: %w\n\n"+
				"If you installed via 'go install', you can upgrade by running:\n"+
				"  go install github.com/iksnae/chatvault@main\n\n"+
				"Or if you cloned the repo, make sure you're in the repository directory.", err)
		}
		internal.LogInfo("Found repository at: %s", repoPath)

		if _, err := exec.LookPath("git"); err != nil {
			return fmt.Errorf("git is not installed or not in PATH")
		}
		if _, err := exec.LookPath("go"); err != nil {
			return fmt.Errorf("go is not installed or not in PATH")
		}

		originalDir, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get current directory: %w", err)
		}
		defer os.Chdir(originalDir)
		if err := os.Chdir(repoPath); err != nil {
			return fmt.Errorf("failed to change to repository directory: %w", err)
		}

		remotes, err := exec.Command("git", "remote").Output()
		if err != nil || len(remotes) == 0 {
			internal.LogWarn("No git remote configured. Skipping pull.")
		} else {
			internal.LogInfo("Pulling latest changes from repository...")
			pullCmd := exec.Command("git", "pull")
			pullCmd.Stdout = os.Stdout
			pullCmd.Stderr = os.Stderr
			if err := pullCmd.Run(); err != nil {
				return fmt.Errorf("failed to pull latest changes: %w", err)
			}
		}

		internal.LogInfo("Building new binary...")
		buildCmd := exec.Command("go", "build", "-buildvcs=false", "-o", "chatvault", ".")
		buildCmd.Stdout = os.Stdout
		buildCmd.Stderr = os.Stderr
		if err := buildCmd.Run(); err != nil {
			return fmt.Errorf("failed to build binary: %w", err)
		}
		if _, err := os.Stat("chatvault"); err != nil {
			return fmt.Errorf("binary was not created after build")
		}

		internal.LogInfo("Installing to %s...", currentBinary)
		if err := os.MkdirAll(filepath.Dir(currentBinary), 0755); err != nil {
			return fmt.Errorf("failed to create target directory: %w", err)
		}
		if err := copyFile(filepath.Join(repoPath, "chatvault"), currentBinary); err != nil {
			return fmt.Errorf("failed to install binary: %w", err)
		}
		if err := os.Chmod(currentBinary, 0755); err != nil {
			return fmt.Errorf("failed to make binary executable: %w", err)
		}

		internal.LogInfo("Verifying installation...")
		output, err := exec.Command(currentBinary, "--version").Output()
		if err != nil {
			internal.LogWarn("Installation completed but verification failed: %v", err)
		} else {
			internal.LogInfo("Upgrade successful!")
			fmt.Println()
			fmt.Println("New version:")
			fmt.Print(string(output))
		}
		return nil
	},
}

// findRepository tries to find the repository in common locations
func findRepository() (string, error) {
	currentBinary, err := os.Executable()
	if err != nil {
		return "", err
	}
	if realPath, err := filepath.EvalSymlinks(currentBinary); err == nil {
		currentBinary = realPath
	}

	if cwd, err := os.Getwd(); err == nil {
		if isGitRepo(cwd) {
			return cwd, nil
		}
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		commonPaths := []string{
			filepath.Join(homeDir, "Projects", "chatvault"),
			filepath.Join(homeDir, "projects", "chatvault"),
			filepath.Join(homeDir, "Code", "chatvault"),
			filepath.Join(homeDir, "code", "chatvault"),
			filepath.Join(homeDir, "go", "src", "github.com", "iksnae", "chatvault"),
		}
		for _, path := range commonPaths {
			if isGitRepo(path) {
				return path, nil
			}
		}
	}

	// The binary may live inside the repo itself; walk up from it.
	dir := filepath.Dir(currentBinary)
	for i := 0; i < 10; i++ {
		if isGitRepo(dir) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("could not find repository")
}

// isGitRepo checks if a directory is a git repository
func isGitRepo(path string) bool {
	gitDir := filepath.Join(path, ".git")
	info, err := os.Stat(gitDir)
	return err == nil && info.IsDir()
}

// copyFile copies a file from src to dst
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return err
	}
	return destFile.Close()
}

func init() {
	rootCmd.AddCommand(upgradeCmd)
}
