// Copyright (C) 2025 Rectify Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package sandbox

import (
	"fmt"

	"github.com/rectifyhq/rectify/internal/lang"
)

// dockerfiles maps each supported project language to the Dockerfile
// used to build its validation image. Every template tolerates missing
// manifests so a half-broken project still produces a build attempt.
var dockerfiles = map[lang.Language]string{
	lang.LangPython: `FROM python:3.11-slim
WORKDIR /app
COPY requirements.txt* ./
RUN pip install --no-cache-dir -r requirements.txt 2>/dev/null || true
COPY . .
CMD ["sh", "-c", "python -m pytest -v || python main.py || echo 'No entrypoint found'"]
`,

	lang.LangNodeJS: `FROM node:20-slim
WORKDIR /app
COPY package*.json ./
RUN npm install 2>/dev/null || true
COPY . .
CMD ["sh", "-c", "npm test || npm start || node index.js"]
`,

	lang.LangJavaScript: `FROM node:20-slim
WORKDIR /app
COPY package*.json ./
RUN npm install 2>/dev/null || true
COPY . .
CMD ["sh", "-c", "npm test || npm start || node index.js"]
`,

	lang.LangTypeScript: `FROM node:20-slim
WORKDIR /app
COPY package*.json ./
RUN npm install 2>/dev/null || true
COPY . .
RUN npm run build 2>/dev/null || npx tsc 2>/dev/null || true
CMD ["sh", "-c", "npm test || npm start"]
`,

	lang.LangGo: `FROM golang:1.21-alpine
WORKDIR /app
COPY go.* ./
RUN go mod download 2>/dev/null || true
COPY . .
RUN go build -o main . 2>/dev/null || true
CMD ["sh", "-c", "go test -v ./... || ./main"]
`,

	lang.LangRust: `FROM rust:1.75-slim
WORKDIR /app
COPY Cargo.* ./
RUN mkdir src && echo "fn main() {}" > src/main.rs && cargo build --release 2>/dev/null || true
COPY . .
RUN cargo build --release
CMD ["sh", "-c", "cargo test || ./target/release/*"]
`,

	lang.LangJava: `FROM eclipse-temurin:21-jdk-jammy
WORKDIR /app
COPY . .
RUN if [ -f "pom.xml" ]; then ./mvnw package -DskipTests 2>/dev/null || mvn package -DskipTests; fi
RUN if [ -f "build.gradle" ]; then ./gradlew build -x test 2>/dev/null || gradle build -x test; fi
CMD ["sh", "-c", "java -jar target/*.jar || java Main"]
`,

	lang.LangPHP: `FROM php:8.3-cli
WORKDIR /app
COPY --from=composer:latest /usr/bin/composer /usr/bin/composer
COPY composer.* ./
RUN composer install 2>/dev/null || true
COPY . .
CMD ["sh", "-c", "php -S 0.0.0.0:8080 -t public || php index.php"]
`,

	lang.LangRuby: `FROM ruby:3.3-slim
WORKDIR /app
COPY Gemfile* ./
RUN bundle install 2>/dev/null || true
COPY . .
CMD ["sh", "-c", "bundle exec rspec || ruby main.rb"]
`,

	lang.LangCSharp: `FROM mcr.microsoft.com/dotnet/sdk:8.0
WORKDIR /app
COPY *.csproj ./
RUN dotnet restore 2>/dev/null || true
COPY . .
RUN dotnet build --configuration Release
CMD ["sh", "-c", "dotnet test || dotnet run"]
`,

	lang.LangBash: `FROM ubuntu:22.04
RUN apt-get update && apt-get install -y bash shellcheck && rm -rf /var/lib/apt/lists/*
WORKDIR /app
COPY . .
RUN chmod +x *.sh 2>/dev/null || true
CMD ["sh", "-c", "shellcheck *.sh && ./main.sh || ./run.sh || echo 'No entrypoint'"]
`,

	lang.LangDockerfile: `FROM alpine:3.19
WORKDIR /app
COPY . .
CMD ["sh", "-c", "test -f Dockerfile && echo 'Dockerfile present' || (echo 'Dockerfile missing' && exit 1)"]
`,

	lang.LangTerraform: `FROM hashicorp/terraform:1.6
WORKDIR /app
COPY . .
RUN terraform init
CMD ["sh", "-c", "terraform validate"]
`,

	lang.LangAnsible: `FROM python:3.11-slim
RUN pip install ansible ansible-lint
WORKDIR /app
COPY . .
CMD ["sh", "-c", "ansible-lint . || ansible-playbook --syntax-check *.yml"]
`,

	lang.LangGeneric: `FROM ubuntu:22.04
RUN apt-get update && apt-get install -y build-essential git curl && rm -rf /var/lib/apt/lists/*
WORKDIR /app
COPY . .
CMD ["sh", "-c", "echo 'Generic sandbox - manual testing required'"]
`,
}

// testCommands maps each language to the command of the Tested stage.
var testCommands = map[lang.Language]string{
	lang.LangPython:     "python -m pytest -v || python -m unittest discover",
	lang.LangNodeJS:     "npm test",
	lang.LangJavaScript: "npm test",
	lang.LangTypeScript: "npm test",
	lang.LangGo:         "go test -v ./...",
	lang.LangRust:       "cargo test",
	lang.LangJava:       "./mvnw test || gradle test",
	lang.LangPHP:        "composer test || ./vendor/bin/phpunit",
	lang.LangRuby:       "bundle exec rspec || rake test",
	lang.LangCSharp:     "dotnet test",
	lang.LangBash:       "shellcheck *.sh",
	lang.LangTerraform:  "terraform validate",
	lang.LangAnsible:    "ansible-lint .",
}

// DockerfileFor returns the Dockerfile body for a language, generic
// when the language has no dedicated template.
func DockerfileFor(l lang.Language) string {
	if body, ok := dockerfiles[l]; ok {
		return body
	}
	return dockerfiles[lang.LangGeneric]
}

// TestCommandFor returns the test command for a language and whether a
// dedicated one exists.
func TestCommandFor(l lang.Language) (string, bool) {
	cmd, ok := testCommands[l]
	return cmd, ok
}

// TemplateLanguages returns every language with a dedicated Dockerfile,
// in the fixed lang.All order (generic excluded).
func TemplateLanguages() []lang.Language {
	var out []lang.Language
	for _, l := range lang.All() {
		if _, ok := dockerfiles[l]; ok {
			out = append(out, l)
		}
	}
	return out
}

// composeFile renders the docker-compose.yml driving the sandbox
// container.
func composeFile(l lang.Language) string {
	return fmt.Sprintf(`version: '3.8'

services:
  rectify-sandbox:
    build:
      context: ./project
      dockerfile: Dockerfile
    container_name: rectify-sandbox-%s
    volumes:
      - ./output:/output
    environment:
      - RECTIFY_SANDBOX=1
      - RECTIFY_LANGUAGE=%s
    working_dir: /app
    networks:
      - rectify-net

networks:
  rectify-net:
    driver: bridge
`, l, l)
}

// dockerignore is written next to the generated Dockerfile so sandbox
// artifacts never leak into the build context.
const dockerignore = `.git
.gitignore
.rectify
*.log
*.tmp
node_modules
__pycache__
*.pyc
.venv
venv
.env
.env.local
target
build
dist
`
